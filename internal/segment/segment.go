package segment

import (
	"fmt"
	"strings"

	"github.com/fachebot/chat-unwrapped/internal/model"
)

// charsPerToken 粗略估算：约 4 字符/token（偏保守）
const charsPerToken = 4

// maxMessageChars 渲染时超长消息截断长度
const maxMessageChars = 500

// Segment 发送给提取阶段的会话片段，大小受限，相邻片段可有受限重叠
type Segment struct {
	Messages      []model.Message
	StartIdx      int // 在用户消息序列中的起始下标
	EndIdx        int
	TokenEstimate int
	Text          string // 渲染后的转写文本
}

// EstimateTokens 估算文本的 token 数量
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// FormatMessage 将单条消息渲染为转写行
func FormatMessage(m model.Message) string {
	text := m.Text
	if len(text) > maxMessageChars {
		text = text[:maxMessageChars] + "..."
	}
	sender := m.Sender
	if sender == "" {
		sender = "System"
	}
	return fmt.Sprintf("[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), sender, text)
}

func formatMessages(msgs []model.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(FormatMessage(m))
	}
	return sb.String()
}

// Split 将会话贪心切分为 token 受限的片段。
// 不变式：片段覆盖全部用户消息；起始下标严格递增（单条超预算消息
// 也会独立成段以保证前进）；相邻片段的重叠不超过 overlapTokens。
func Split(conv *model.Conversation, targetTokens, overlapTokens int) []Segment {
	msgs := conv.UserMessages()
	if len(msgs) == 0 {
		return nil
	}

	total := formatMessages(msgs)
	if EstimateTokens(total) <= targetTokens {
		return []Segment{{
			Messages:      msgs,
			StartIdx:      0,
			EndIdx:        len(msgs) - 1,
			TokenEstimate: EstimateTokens(total),
			Text:          total,
		}}
	}

	var segments []Segment
	start := 0
	for start < len(msgs) {
		end := start
		count := 0
		tokens := 0
		for i := start; i < len(msgs); i++ {
			line := FormatMessage(msgs[i])
			lineTokens := EstimateTokens(line)
			if tokens+lineTokens > targetTokens && count > 0 {
				break
			}
			tokens += lineTokens
			end = i
			count++
		}
		// count==0 不会发生：首条消息总会被收入（哪怕单条超预算）

		text := formatMessages(msgs[start : end+1])
		segments = append(segments, Segment{
			Messages:      msgs[start : end+1],
			StartIdx:      start,
			EndIdx:        end,
			TokenEstimate: EstimateTokens(text),
			Text:          text,
		})

		// 下一片段回退若干尾部消息作为上下文重叠
		next := end + 1
		if next < len(msgs) && overlapTokens > 0 {
			overlap := 0
			for i := end; i >= start; i-- {
				lineTokens := EstimateTokens(FormatMessage(msgs[i]))
				if overlap+lineTokens > overlapTokens {
					break
				}
				overlap += lineTokens
				next = i
			}
		}
		// 保证前进：重叠覆盖整个片段时放弃重叠
		if next <= start {
			next = end + 1
		}
		start = next
	}

	return segments
}
