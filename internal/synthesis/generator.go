package synthesis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fachebot/chat-unwrapped/internal/logger"
	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/provider"
)

const synthesisBudget = 4096

// 证据具体性判定：包含数字、引用原文、时间或百分比之一即视为具体
var (
	reDigit  = regexp.MustCompile(`\d`)
	reQuoted = regexp.MustCompile(`["'].*?["']`)
	reTime   = regexp.MustCompile(`\d{1,2}:\d{2}|\d{1,2}\s?(am|pm|AM|PM)`)
)

// Options 合成参数（均来自配置）
type Options struct {
	AwardCount      int
	MaxPerRecipient int
	QuipMaxWords    int
	SampleCount     int
	Debug           func(name, content string) // 落盘提示词/原始输出的回调，可为 nil
}

// Result 合成结果及用量
type Result struct {
	Awards       []model.Award
	Backend      string
	InputTokens  int
	OutputTokens int
}

// Generator 把统计、模式、证据和消息样例合成为最终奖项列表
type Generator struct {
	provider provider.Provider
	opts     Options
}

func NewGenerator(p provider.Provider, opts Options) *Generator {
	return &Generator{provider: p, opts: opts}
}

type awardsJSON struct {
	Awards []model.Award `json:"awards"`
}

// Generate 生成奖项。校验失败会带着具体问题清单纠错重试一次；
// 重试后仍有瑕疵时返回较优的一次解析结果并告警，而不是报错。
// 只有后端调用失败或两次都解析不出 JSON 时才返回错误。
func (g *Generator) Generate(ctx context.Context, stats *model.Statistics,
	patterns []model.DetectedPattern, evidence *model.EvidenceSet,
	samples []model.Message) (*Result, error) {

	prompt := buildPrompt(promptInput{
		Stats:      stats,
		Patterns:   patterns,
		Evidence:   evidence,
		Samples:    samples,
		AwardCount: g.opts.AwardCount,
		MaxPerson:  g.opts.MaxPerRecipient,
		QuipWords:  g.opts.QuipMaxWords,
	})
	participants := stats.Participants()
	if g.opts.Debug != nil {
		g.opts.Debug("synthesis_prompt.txt", prompt)
	}

	result := &Result{Backend: g.provider.Name()}

	var (
		best       []model.Award
		bestIssues = -1
	)
	currentPrompt := prompt
	for attempt := 0; attempt < 2; attempt++ {
		var out awardsJSON
		resp, err := g.provider.GenerateStructured(ctx, provider.Request{
			Prompt:      currentPrompt,
			System:      systemPrompt,
			MaxTokens:   synthesisBudget,
			Temperature: 0.8, // 合成需要创造性，用较高温度
		}, &out)
		if resp != nil {
			result.InputTokens += resp.InputTokens
			result.OutputTokens += resp.OutputTokens
			if g.opts.Debug != nil {
				g.opts.Debug(fmt.Sprintf("synthesis_response_%d.json", attempt), resp.Text)
			}
		}
		if err != nil {
			if attempt == 0 {
				logger.Warnf("[Synthesis] 合成调用失败, 重试一次: %s", err)
				continue
			}
			return result, fmt.Errorf("合成奖项失败: %w", err)
		}

		awards, issues := g.validate(out.Awards, participants)
		if bestIssues < 0 || len(issues) < bestIssues {
			best = awards
			bestIssues = len(issues)
		}
		if len(issues) == 0 {
			result.Awards = awards
			return result, nil
		}
		if attempt == 0 {
			logger.Infof("[Synthesis] 首轮结果有 %d 个问题, 发起纠错重试", len(issues))
			currentPrompt = buildRetryPrompt(prompt, issues)
		}
	}

	if len(best) == 0 {
		return result, fmt.Errorf("合成奖项失败: %w", provider.ErrMalformedOutput)
	}
	logger.Warnf("[Synthesis] 纠错重试后仍有 %d 个问题, 采用较优结果 (%d 个奖项)", bestIssues, len(best))
	result.Awards = best
	return result, nil
}

// validate 校验并清理奖项列表，返回保留的奖项和问题清单。
// 无法修复的奖项（收件人不认识、证据空泛）被剔除并记为问题；
// 可修复的（妙语超长）就地修剪。
func (g *Generator) validate(awards []model.Award, participants []string) ([]model.Award, []string) {
	var issues []string
	perPerson := map[string]int{}
	kept := make([]model.Award, 0, len(awards))

	for i, a := range awards {
		if a.Title == "" || a.Recipient == "" {
			issues = append(issues, fmt.Sprintf("award %d is missing a title or recipient", i+1))
			continue
		}

		matched, ok := matchParticipant(a.Recipient, participants)
		if !ok {
			issues = append(issues, fmt.Sprintf("award %q names unknown recipient %q - use exact participant names", a.Title, a.Recipient))
			continue
		}
		a.Recipient = matched

		if !isSpecific(a.Evidence) {
			issues = append(issues, fmt.Sprintf("award %q has vague evidence - include an exact quote, count, time or percentage", a.Title))
			continue
		}

		if words := strings.Fields(a.Quip); len(words) > g.opts.QuipMaxWords {
			a.Quip = strings.Join(words[:g.opts.QuipMaxWords], " ")
		}

		if perPerson[a.Recipient] >= g.opts.MaxPerRecipient {
			issues = append(issues, fmt.Sprintf("%s has too many awards - max %d per person, spread them out", a.Recipient, g.opts.MaxPerRecipient))
			continue
		}
		perPerson[a.Recipient]++
		kept = append(kept, a)
	}

	if len(kept) != g.opts.AwardCount {
		issues = append(issues, fmt.Sprintf("need exactly %d valid awards, got %d", g.opts.AwardCount, len(kept)))
	}
	// 参与者多于奖项数时无法人人有份，不做此项要求
	if len(participants) <= g.opts.AwardCount {
		for _, p := range participants {
			if perPerson[p] == 0 {
				issues = append(issues, fmt.Sprintf("%s received no awards - every participant gets at least one", p))
			}
		}
	}

	return kept, issues
}

// isSpecific 证据至少包含一种具体细节
func isSpecific(evidence string) bool {
	if evidence == "" {
		return false
	}
	return reDigit.MatchString(evidence) ||
		reQuoted.MatchString(evidence) ||
		reTime.MatchString(evidence) ||
		strings.Contains(evidence, "%")
}

// matchParticipant 把收件人名字模糊匹配到参与者：先大小写不敏感精确匹配，
// 再做双向包含匹配（"Sam" 能匹配 "Sam Chen"，反之亦然）
func matchParticipant(name string, participants []string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return "", false
	}
	for _, p := range participants {
		if strings.ToLower(p) == lower {
			return p, true
		}
	}
	for _, p := range participants {
		pl := strings.ToLower(p)
		if strings.Contains(pl, lower) || strings.Contains(lower, pl) {
			return p, true
		}
	}
	return "", false
}
