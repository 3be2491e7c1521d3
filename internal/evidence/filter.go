package evidence

import (
	"context"

	"github.com/fachebot/chat-unwrapped/internal/logger"
	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/provider"
)

const (
	// minFilterItems 条目太少时不值得过滤（过滤反而可能掏空证据）
	minFilterItems = 5

	filterFullBudget  = 8192
	filterIndexBudget = 2048
)

// Filter 质量过滤：请后端按"足够有趣"的标准筛掉平庸条目。
// 失败从不致命，逐级回退：完整过滤 -> 下标过滤 -> 原样返回。
type Filter struct {
	provider provider.Provider
}

func NewFilter(p provider.Provider) *Filter {
	return &Filter{provider: p}
}

// fullFilterJSON 完整过滤的输出结构。字段用指针切片区分
// "类别缺失"（保留原值）与"类别为空"（确实全被筛掉）。
type fullFilterJSON struct {
	NotableQuotes  *[]model.Quote         `json:"notable_quotes"`
	InsideJokes    *[]model.InsideJoke    `json:"inside_jokes"`
	FunnyMoments   *[]model.FunnyMoment   `json:"funny_moments"`
	Snippets       *[]model.Snippet       `json:"conversation_snippets"`
	Dynamics       *[]string              `json:"dynamics"`
	Contradictions *[]model.Contradiction `json:"contradictions"`
	Roasts         *[]model.Roast         `json:"roasts"`
	AwardIdeas     *[]model.AwardIdea     `json:"award_ideas"`
}

// indexFilterJSON 下标过滤的输出结构
type indexFilterJSON struct {
	NotableQuotes  []int `json:"notable_quotes"`
	InsideJokes    []int `json:"inside_jokes"`
	FunnyMoments   []int `json:"funny_moments"`
	Snippets       []int `json:"conversation_snippets"`
	Dynamics       []int `json:"dynamics"`
	Contradictions []int `json:"contradictions"`
	Roasts         []int `json:"roasts"`
	AwardIdeas     []int `json:"award_ideas"`
}

// Apply 对证据集执行质量过滤，返回过滤后的新集合与 token 用量。
// 任何失败都回退为原集合，绝不返回错误。风格笔记从不过滤。
func (f *Filter) Apply(ctx context.Context, set *model.EvidenceSet) (*model.EvidenceSet, int, int) {
	if set.ItemCount() < minFilterItems {
		logger.Debugf("[Filter] 证据条目数 %d 过少, 跳过质量过滤", set.ItemCount())
		return set, 0, 0
	}

	var inTok, outTok int

	filtered, in1, out1, err := f.applyFull(ctx, set)
	inTok += in1
	outTok += out1
	if err == nil {
		return filtered, inTok, outTok
	}
	logger.Warnf("[Filter] 完整过滤失败, 回退下标过滤: %s", err)

	filtered, in2, out2, err := f.applyIndex(ctx, set)
	inTok += in2
	outTok += out2
	if err == nil {
		return filtered, inTok, outTok
	}
	logger.Warnf("[Filter] 下标过滤也失败, 使用未过滤证据: %s", err)

	return set, inTok, outTok
}

func (f *Filter) applyFull(ctx context.Context, set *model.EvidenceSet) (*model.EvidenceSet, int, int, error) {
	var out fullFilterJSON
	resp, err := f.provider.GenerateStructured(ctx, provider.Request{
		Prompt:    buildFilterPrompt(set),
		System:    filterSystemPrompt,
		MaxTokens: filterFullBudget,
	}, &out)

	var inTok, outTok int
	if resp != nil {
		inTok = resp.InputTokens
		outTok = resp.OutputTokens
	}
	if err != nil {
		return nil, inTok, outTok, err
	}

	result := &model.EvidenceSet{
		NotableQuotes:  set.NotableQuotes,
		InsideJokes:    set.InsideJokes,
		Dynamics:       set.Dynamics,
		FunnyMoments:   set.FunnyMoments,
		StyleNotes:     set.StyleNotes,
		AwardIdeas:     set.AwardIdeas,
		Snippets:       set.Snippets,
		Contradictions: set.Contradictions,
		Roasts:         set.Roasts,
	}
	if out.NotableQuotes != nil {
		result.NotableQuotes = *out.NotableQuotes
	}
	if out.InsideJokes != nil {
		result.InsideJokes = *out.InsideJokes
	}
	if out.Dynamics != nil {
		result.Dynamics = *out.Dynamics
	}
	if out.FunnyMoments != nil {
		result.FunnyMoments = *out.FunnyMoments
	}
	if out.AwardIdeas != nil {
		result.AwardIdeas = *out.AwardIdeas
	}
	if out.Snippets != nil {
		result.Snippets = *out.Snippets
	}
	if out.Contradictions != nil {
		result.Contradictions = *out.Contradictions
	}
	if out.Roasts != nil {
		result.Roasts = *out.Roasts
	}
	return result, inTok, outTok, nil
}

func (f *Filter) applyIndex(ctx context.Context, set *model.EvidenceSet) (*model.EvidenceSet, int, int, error) {
	var out indexFilterJSON
	resp, err := f.provider.GenerateStructured(ctx, provider.Request{
		Prompt:    buildIndexFilterPrompt(set),
		System:    filterSystemPrompt,
		MaxTokens: filterIndexBudget,
	}, &out)

	var inTok, outTok int
	if resp != nil {
		inTok = resp.InputTokens
		outTok = resp.OutputTokens
	}
	if err != nil {
		return nil, inTok, outTok, err
	}

	result := &model.EvidenceSet{
		NotableQuotes:  pickByIndex(set.NotableQuotes, out.NotableQuotes),
		InsideJokes:    pickByIndex(set.InsideJokes, out.InsideJokes),
		Dynamics:       pickByIndex(set.Dynamics, out.Dynamics),
		FunnyMoments:   pickByIndex(set.FunnyMoments, out.FunnyMoments),
		StyleNotes:     set.StyleNotes,
		AwardIdeas:     pickByIndex(set.AwardIdeas, out.AwardIdeas),
		Snippets:       pickByIndex(set.Snippets, out.Snippets),
		Contradictions: pickByIndex(set.Contradictions, out.Contradictions),
		Roasts:         pickByIndex(set.Roasts, out.Roasts),
	}
	return result, inTok, outTok, nil
}

// pickByIndex 按下标挑选，越界下标静默忽略
func pickByIndex[T any](items []T, indices []int) []T {
	out := make([]T, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(items) {
			out = append(out, items[i])
		}
	}
	return out
}
