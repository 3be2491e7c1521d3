package synthesis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/segment"
	"github.com/fachebot/chat-unwrapped/internal/stats"
)

// maxPatternsInPrompt 提示词中最多附带的行为模式数
const maxPatternsInPrompt = 10

// SelectSamples 为合成提示词挑选示例消息：约三分之一取自会话末尾
// （近期行为更有代表性），约三分之一取表达力最强的消息（emoji、感叹、
// 大写、长消息），其余在全程均匀抽取，最终按时间排序去重。
func SelectSamples(msgs []model.Message, count int) []model.Message {
	if count <= 0 || len(msgs) == 0 {
		return nil
	}
	if len(msgs) <= count {
		out := make([]model.Message, len(msgs))
		copy(out, msgs)
		return out
	}

	picked := map[int]bool{}

	recent := count / 3
	if recent < 1 {
		recent = 1
	}
	for i := len(msgs) - recent; i < len(msgs); i++ {
		picked[i] = true
	}

	expressive := count / 3
	if expressive > 0 {
		type scored struct{ idx, score int }
		candidates := make([]scored, 0, len(msgs))
		for i, m := range msgs {
			if picked[i] {
				continue
			}
			if s := expressiveScore(m.Text); s > 0 {
				candidates = append(candidates, scored{i, s})
			}
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].score > candidates[b].score
		})
		for k := 0; k < expressive && k < len(candidates); k++ {
			picked[candidates[k].idx] = true
		}
	}

	remaining := count - len(picked)
	if remaining > 0 {
		stride := float64(len(msgs)) / float64(remaining)
		for k := 0; k < remaining; k++ {
			idx := int(float64(k) * stride)
			if idx >= len(msgs) {
				idx = len(msgs) - 1
			}
			picked[idx] = true
		}
	}

	indices := make([]int, 0, len(picked))
	for i := range picked {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]model.Message, 0, len(indices))
	for _, i := range indices {
		out = append(out, msgs[i])
	}
	return out
}

// expressiveScore 粗略评估一条消息的表达力，0 表示平淡
func expressiveScore(text string) int {
	score := 0
	score += 2 * len(stats.ExtractEmojis(text))
	score += strings.Count(text, "!")
	score += strings.Count(text, "?")
	for _, w := range strings.Fields(text) {
		if len(w) >= 3 && w == strings.ToUpper(w) && w != strings.ToLower(w) {
			score += 2
		}
	}
	if len(text) > 120 {
		score++
	}
	return score
}

// promptInput 合成提示词的全部素材
type promptInput struct {
	Stats      *model.Statistics
	Patterns   []model.DetectedPattern
	Evidence   *model.EvidenceSet // 可为 nil（降级路径）
	Samples    []model.Message
	AwardCount int
	MaxPerson  int
	QuipWords  int
}

// buildPrompt 组装合成提示词：统计 -> 模式 -> 证据 -> 消息样例 -> 输出格式
func buildPrompt(in promptInput) string {
	var sb strings.Builder

	participants := in.Stats.Participants()
	fmt.Fprintf(&sb, "Write the chat awards for %s.\n\n", strings.Join(participants, ", "))

	sb.WriteString("## STATISTICS\n")
	fmt.Fprintf(&sb, "Total messages: %d (%d words)\n", in.Stats.TotalMessages, in.Stats.TotalWords)
	for _, p := range participants {
		fmt.Fprintf(&sb, "- %s: %d messages, avg %.1f words\n",
			p, in.Stats.MessagesPerPerson[p], in.Stats.AvgMessageLength[p])
	}
	if in.Stats.BusiestHour >= 0 {
		fmt.Fprintf(&sb, "Busiest hour: %d:00\n", in.Stats.BusiestHour)
	}
	if len(in.Stats.Initiators) > 0 {
		parts := make([]string, 0, len(in.Stats.Initiators))
		for _, p := range participants {
			if n, ok := in.Stats.Initiators[p]; ok {
				parts = append(parts, fmt.Sprintf("%s %d", p, n))
			}
		}
		fmt.Fprintf(&sb, "Conversation starters: %s\n", strings.Join(parts, ", "))
	}
	for i, e := range in.Stats.TopEmojis {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "Top emoji #%d: %s (%d uses)\n", i+1, e.Emoji, e.Count)
	}
	sb.WriteString("\n")

	if len(in.Patterns) > 0 {
		sb.WriteString("## DETECTED PATTERNS\n")
		patterns := in.Patterns
		if len(patterns) > maxPatternsInPrompt {
			patterns = patterns[:maxPatternsInPrompt]
		}
		for _, p := range patterns {
			fmt.Fprintf(&sb, "- %s: %s (seen %d times)\n", p.Person, p.Description, p.Frequency)
		}
		sb.WriteString("\n")
	}

	if in.Evidence != nil && in.Evidence.ItemCount() > 0 {
		sb.WriteString("## EVIDENCE FROM THE CONVERSATION\n")
		data, err := json.MarshalIndent(in.Evidence, "", "  ")
		if err == nil {
			sb.Write(data)
		}
		sb.WriteString("\n\n")
	}

	if len(in.Samples) > 0 {
		sb.WriteString("## SAMPLE MESSAGES\n")
		for _, m := range in.Samples {
			sb.WriteString(segment.FormatMessage(m))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## YOUR TASK\nWrite exactly %d awards. Max %d awards per person. Every participant gets at least one.\n\n",
		in.AwardCount, in.MaxPerson)
	sb.WriteString(buildAwardFormat(in.AwardCount, in.QuipWords))

	return sb.String()
}
