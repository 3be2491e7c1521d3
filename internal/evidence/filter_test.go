package evidence

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/provider"
)

func sampleSet() *model.EvidenceSet {
	return &model.EvidenceSet{
		NotableQuotes: []model.Quote{
			{Person: "Sam", Quote: "do fish know they're wet"},
			{Person: "Alex", Quote: "we should open a taco truck"},
			{Person: "Sam", Quote: "ok"},
		},
		FunnyMoments: []model.FunnyMoment{
			{Description: "Sam argued with the food delivery bot for 20 minutes"},
			{Description: "they planned a trip"},
		},
		Dynamics:   []string{"Alex asks, Sam deflects with a joke"},
		StyleNotes: map[string][]string{"Sam": {"types in all lowercase"}},
	}
}

func TestFilterApply(t *testing.T) {
	t.Run("条目过少时跳过过滤", func(t *testing.T) {
		set := &model.EvidenceSet{
			Dynamics:   []string{"only one item"},
			StyleNotes: map[string][]string{},
		}
		mock := &mockProvider{}
		f := NewFilter(mock)

		out, in, outTok := f.Apply(context.Background(), set)

		assert.Same(t, set, out)
		assert.Equal(t, 0, in)
		assert.Equal(t, 0, outTok)
		assert.Equal(t, 0, mock.callCount())
	})

	t.Run("完整过滤成功", func(t *testing.T) {
		mock := &mockProvider{calls: []mockCall{{text: `{
			"notable_quotes": [{"person": "Sam", "quote": "do fish know they're wet"}],
			"funny_moments": [],
			"dynamics": ["Alex asks, Sam deflects with a joke"]
		}`}}}
		f := NewFilter(mock)

		out, _, _ := f.Apply(context.Background(), sampleSet())

		assert.Len(t, out.NotableQuotes, 1)
		// 返回了空数组：该类别确实全被筛掉
		assert.Empty(t, out.FunnyMoments)
		assert.Len(t, out.Dynamics, 1)
	})

	t.Run("输出缺失的类别保留原值", func(t *testing.T) {
		mock := &mockProvider{calls: []mockCall{{text: `{
			"notable_quotes": [{"person": "Sam", "quote": "do fish know they're wet"}]
		}`}}}
		f := NewFilter(mock)

		set := sampleSet()
		out, _, _ := f.Apply(context.Background(), set)

		assert.Len(t, out.NotableQuotes, 1)
		// funny_moments 键缺失，不等于空，原样保留
		assert.Len(t, out.FunnyMoments, 2)
		assert.Len(t, out.Dynamics, 1)
	})

	t.Run("完整过滤失败时回退下标过滤", func(t *testing.T) {
		mock := &mockProvider{calls: []mockCall{
			{text: `{"notable_quotes": [truncated`},
			{text: `{"notable_quotes": [0, 2], "funny_moments": [0], "dynamics": [0]}`},
		}}
		f := NewFilter(mock)

		out, _, _ := f.Apply(context.Background(), sampleSet())

		assert.Len(t, out.NotableQuotes, 2)
		assert.Equal(t, "do fish know they're wet", out.NotableQuotes[0].Quote)
		assert.Equal(t, "ok", out.NotableQuotes[1].Quote)
		assert.Len(t, out.FunnyMoments, 1)
	})

	t.Run("两级过滤都失败时返回原集合", func(t *testing.T) {
		mock := &mockProvider{calls: []mockCall{
			{err: fmt.Errorf("%w: 限流", provider.ErrProvider)},
			{err: fmt.Errorf("%w: 限流", provider.ErrProvider)},
		}}
		f := NewFilter(mock)

		set := sampleSet()
		out, _, _ := f.Apply(context.Background(), set)

		assert.Same(t, set, out)
	})

	t.Run("下标越界被忽略", func(t *testing.T) {
		mock := &mockProvider{calls: []mockCall{
			{text: `not json at all`},
			{text: `{"notable_quotes": [0, 99, -1]}`},
		}}
		f := NewFilter(mock)

		out, _, _ := f.Apply(context.Background(), sampleSet())

		assert.Len(t, out.NotableQuotes, 1)
	})

	t.Run("风格笔记从不过滤", func(t *testing.T) {
		mock := &mockProvider{calls: []mockCall{{text: `{"notable_quotes": []}`}}}
		f := NewFilter(mock)

		set := sampleSet()
		out, _, _ := f.Apply(context.Background(), set)

		assert.Equal(t, set.StyleNotes, out.StyleNotes)
	})
}
