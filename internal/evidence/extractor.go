package evidence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fachebot/chat-unwrapped/internal/logger"
	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/provider"
	"github.com/fachebot/chat-unwrapped/internal/segment"
)

const (
	// initialBudget 首次提取的输出 token 预算
	initialBudget = 2048
	// retryBudget 输出疑似被截断时重试的加大预算
	retryBudget = 4096
)

// Extractor 对单个片段执行证据提取
type Extractor struct {
	provider provider.Provider
}

func NewExtractor(p provider.Provider) *Extractor {
	return &Extractor{provider: p}
}

// packetJSON 提取输出的 JSON 结构，不含片段下标（由调用方补充）
type packetJSON struct {
	NotableQuotes  []model.Quote         `json:"notable_quotes"`
	InsideJokes    []model.InsideJoke    `json:"inside_jokes"`
	Dynamics       []string              `json:"dynamics"`
	FunnyMoments   []model.FunnyMoment   `json:"funny_moments"`
	StyleNotes     map[string][]string   `json:"style_notes"`
	AwardIdeas     []model.AwardIdea     `json:"award_ideas"`
	Snippets       []model.Snippet       `json:"conversation_snippets"`
	Contradictions []model.Contradiction `json:"contradictions"`
	Roasts         []model.Roast         `json:"roasts"`
}

// Extract 提取单个片段的证据包。输出 JSON 解析失败（通常是被截断）时
// 加大预算重试一次，其他错误直接返回。
func (e *Extractor) Extract(ctx context.Context, seg segment.Segment) (model.EvidencePacket, int, int, error) {
	prompt := buildExtractorPrompt(seg)

	var inTokens, outTokens int
	budget := initialBudget
	for attempt := 0; attempt < 2; attempt++ {
		var out packetJSON
		resp, err := e.provider.GenerateStructured(ctx, provider.Request{
			Prompt:    prompt,
			System:    extractorSystemPrompt,
			MaxTokens: budget,
		}, &out)
		if resp != nil {
			inTokens += resp.InputTokens
			outTokens += resp.OutputTokens
		}
		if err != nil {
			if errors.Is(err, provider.ErrMalformedOutput) && attempt == 0 {
				logger.Warnf("[Evidence] 片段 %d-%d 输出解析失败, 加大预算重试: %s",
					seg.StartIdx, seg.EndIdx, err)
				budget = retryBudget
				continue
			}
			return model.EmptyPacket(seg.StartIdx, seg.EndIdx), inTokens, outTokens,
				fmt.Errorf("提取片段 %d-%d 失败: %w", seg.StartIdx, seg.EndIdx, err)
		}

		packet := model.EvidencePacket{
			SegmentStart:   seg.StartIdx,
			SegmentEnd:     seg.EndIdx,
			NotableQuotes:  out.NotableQuotes,
			InsideJokes:    out.InsideJokes,
			Dynamics:       out.Dynamics,
			FunnyMoments:   out.FunnyMoments,
			StyleNotes:     out.StyleNotes,
			AwardIdeas:     out.AwardIdeas,
			Snippets:       out.Snippets,
			Contradictions: out.Contradictions,
			Roasts:         out.Roasts,
		}
		if packet.StyleNotes == nil {
			packet.StyleNotes = map[string][]string{}
		}
		return packet, inTokens, outTokens, nil
	}

	// 不可达：循环内必然 return
	return model.EmptyPacket(seg.StartIdx, seg.EndIdx), inTokens, outTokens, provider.ErrMalformedOutput
}
