package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/provider"
)

// mockProvider 按脚本依次返回预设响应的假后端
type mockProvider struct {
	calls []mockCall
	count int
}

type mockCall struct {
	text string
	err  error
}

func (m *mockProvider) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	return m.GenerateStructured(ctx, req, nil)
}

func (m *mockProvider) GenerateStructured(ctx context.Context, req provider.Request, out any) (*provider.Response, error) {
	if m.count >= len(m.calls) {
		return nil, fmt.Errorf("%w: 脚本耗尽", provider.ErrProvider)
	}
	call := m.calls[m.count]
	m.count++
	if call.err != nil {
		return nil, call.err
	}
	resp := &provider.Response{Text: call.text, Backend: m.Name(), InputTokens: 100, OutputTokens: 50}
	if out != nil {
		if err := json.Unmarshal([]byte(call.text), out); err != nil {
			return resp, fmt.Errorf("%w: %v", provider.ErrMalformedOutput, err)
		}
	}
	return resp, nil
}

func (m *mockProvider) WithModel(model string) provider.Provider { return m }

func (m *mockProvider) Name() string { return "mock:synth" }

func testStats() *model.Statistics {
	return &model.Statistics{
		TotalMessages:     100,
		TotalWords:        800,
		MessagesPerPerson: map[string]int{"Sam": 60, "Alex": 40},
		AvgMessageLength:  map[string]float64{"Sam": 7.5, "Alex": 9.0},
		Initiators:        map[string]int{"Sam": 5},
		BusiestHour:       22,
	}
}

func testOptions() Options {
	return Options{AwardCount: 2, MaxPerRecipient: 2, QuipMaxWords: 15, SampleCount: 50}
}

func awardsText(awards []model.Award) string {
	data, _ := json.Marshal(map[string]any{"awards": awards})
	return string(data)
}

func validAwards() []model.Award {
	return []model.Award{
		{Title: "The Night Owl Award", Recipient: "Sam", Evidence: "42 messages after midnight", Quip: "Sleep is optional."},
		{Title: "The Essayist Award", Recipient: "Alex", Evidence: "avg 9.0 words per message", Quip: "Why text when you can publish."},
	}
}

func TestGenerate(t *testing.T) {
	t.Run("首轮通过校验", func(t *testing.T) {
		mock := &mockProvider{calls: []mockCall{{text: awardsText(validAwards())}}}
		g := NewGenerator(mock, testOptions())

		result, err := g.Generate(context.Background(), testStats(), nil, nil, nil)

		assert.NoError(t, err)
		assert.Len(t, result.Awards, 2)
		assert.Equal(t, "mock:synth", result.Backend)
		assert.Equal(t, 100, result.InputTokens)
		assert.Equal(t, 1, mock.count)
	})

	t.Run("未知收件人触发纠错重试", func(t *testing.T) {
		bad := validAwards()
		bad[0].Recipient = "Jordan"
		mock := &mockProvider{calls: []mockCall{
			{text: awardsText(bad)},
			{text: awardsText(validAwards())},
		}}
		g := NewGenerator(mock, testOptions())

		result, err := g.Generate(context.Background(), testStats(), nil, nil, nil)

		assert.NoError(t, err)
		assert.Len(t, result.Awards, 2)
		assert.Equal(t, 2, mock.count)
		// 两轮用量累计
		assert.Equal(t, 200, result.InputTokens)
	})

	t.Run("重试后仍有问题则返回较优结果", func(t *testing.T) {
		bad := validAwards()
		bad[1].Evidence = "just vibes" // 无任何具体细节
		mock := &mockProvider{calls: []mockCall{
			{text: awardsText(bad)},
			{text: awardsText(bad)},
		}}
		g := NewGenerator(mock, testOptions())

		result, err := g.Generate(context.Background(), testStats(), nil, nil, nil)

		assert.NoError(t, err)
		assert.Len(t, result.Awards, 1)
		assert.Equal(t, "The Night Owl Award", result.Awards[0].Title)
	})

	t.Run("后端错误返回错误", func(t *testing.T) {
		mock := &mockProvider{calls: []mockCall{
			{err: fmt.Errorf("%w: 限流", provider.ErrProvider)},
			{err: fmt.Errorf("%w: 限流", provider.ErrProvider)},
		}}
		g := NewGenerator(mock, testOptions())

		_, err := g.Generate(context.Background(), testStats(), nil, nil, nil)

		assert.Error(t, err)
	})

	t.Run("模糊收件人名被归一化", func(t *testing.T) {
		awards := validAwards()
		awards[0].Recipient = "sam"
		mock := &mockProvider{calls: []mockCall{{text: awardsText(awards)}}}
		g := NewGenerator(mock, testOptions())

		result, err := g.Generate(context.Background(), testStats(), nil, nil, nil)

		assert.NoError(t, err)
		assert.Equal(t, "Sam", result.Awards[0].Recipient)
	})

	t.Run("超长妙语被修剪", func(t *testing.T) {
		awards := validAwards()
		awards[0].Quip = "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen"
		mock := &mockProvider{calls: []mockCall{{text: awardsText(awards)}}}
		g := NewGenerator(mock, testOptions())

		result, err := g.Generate(context.Background(), testStats(), nil, nil, nil)

		assert.NoError(t, err)
		assert.Equal(t, "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen",
			result.Awards[0].Quip)
	})
}

func TestValidate(t *testing.T) {
	g := NewGenerator(nil, Options{AwardCount: 4, MaxPerRecipient: 2, QuipMaxWords: 15})
	participants := []string{"Sam", "Alex"}

	t.Run("单人奖项超限被剔除", func(t *testing.T) {
		awards := []model.Award{
			{Title: "A", Recipient: "Sam", Evidence: "1 thing"},
			{Title: "B", Recipient: "Sam", Evidence: "2 things"},
			{Title: "C", Recipient: "Sam", Evidence: "3 things"},
			{Title: "D", Recipient: "Alex", Evidence: "4 things"},
		}
		kept, issues := g.validate(awards, participants)

		assert.Len(t, kept, 3)
		assert.NotEmpty(t, issues)
	})

	t.Run("缺标题或收件人被剔除", func(t *testing.T) {
		awards := []model.Award{{Title: "", Recipient: "Sam", Evidence: "7 times"}}
		kept, issues := g.validate(awards, participants)

		assert.Empty(t, kept)
		assert.NotEmpty(t, issues)
	})

	t.Run("数量不符记为问题", func(t *testing.T) {
		awards := []model.Award{
			{Title: "A", Recipient: "Sam", Evidence: "1 thing", Quip: "q"},
			{Title: "B", Recipient: "Alex", Evidence: "2 things", Quip: "q"},
		}
		_, issues := g.validate(awards, participants)

		assert.NotEmpty(t, issues)
	})
}

func TestIsSpecific(t *testing.T) {
	cases := []struct {
		名称 string
		证据 string
		期望 bool
	}{
		{"包含数字", "sent 42 messages", true},
		{"包含引用", `said "do fish know they're wet" once too often`, true},
		{"包含时间", "texted at 2:14am", true},
		{"包含百分比", "eighty percent... actually 80%", true},
		{"空泛描述", "is generally very funny", false},
		{"空字符串", "", false},
	}
	for _, c := range cases {
		t.Run(c.名称, func(t *testing.T) {
			assert.Equal(t, c.期望, isSpecific(c.证据))
		})
	}
}

func TestMatchParticipant(t *testing.T) {
	participants := []string{"Sam Chen", "Alex"}

	t.Run("大小写不敏感精确匹配", func(t *testing.T) {
		name, ok := matchParticipant("alex", participants)
		assert.True(t, ok)
		assert.Equal(t, "Alex", name)
	})

	t.Run("前缀包含匹配", func(t *testing.T) {
		name, ok := matchParticipant("Sam", participants)
		assert.True(t, ok)
		assert.Equal(t, "Sam Chen", name)
	})

	t.Run("反向包含匹配", func(t *testing.T) {
		name, ok := matchParticipant("Alex (the one and only)", participants)
		assert.True(t, ok)
		assert.Equal(t, "Alex", name)
	})

	t.Run("陌生名字不匹配", func(t *testing.T) {
		_, ok := matchParticipant("Jordan", participants)
		assert.False(t, ok)
	})
}
