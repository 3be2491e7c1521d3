package report

import (
	"fmt"
	"strings"

	"github.com/fachebot/chat-unwrapped/internal/model"
)

// maxBlockLength 分块发送时单块的最大字符数
const maxBlockLength = 4000

// Render 将流水线结果渲染为可读的文本报告
func Render(conv *model.Conversation, stats *model.Statistics, result *model.PipelineResult) string {
	var sb strings.Builder

	sb.WriteString("🏆 Chat Unwrapped\n")
	sb.WriteString(strings.Repeat("=", 40))
	sb.WriteString("\n\n")

	if len(conv.Participants) > 0 {
		fmt.Fprintf(&sb, "👥 %s (%s)\n", strings.Join(conv.Participants, ", "), conv.ChatType)
	}
	if !stats.FirstMessage.IsZero() {
		fmt.Fprintf(&sb, "📅 %s — %s\n",
			stats.FirstMessage.Format("2006-01-02"), stats.LastMessage.Format("2006-01-02"))
	}
	fmt.Fprintf(&sb, "💬 %d 条消息 / %d 个词\n", stats.TotalMessages, stats.TotalWords)
	for _, p := range stats.Participants() {
		fmt.Fprintf(&sb, "   %s: %d 条 (平均 %.1f 词)\n",
			p, stats.MessagesPerPerson[p], stats.AvgMessageLength[p])
	}
	if stats.BusiestHour >= 0 {
		fmt.Fprintf(&sb, "⏰ 最活跃时段: %d:00\n", stats.BusiestHour)
	}
	if len(stats.TopEmojis) > 0 {
		sb.WriteString("😀 高频 emoji:")
		for i, e := range stats.TopEmojis {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&sb, " %s×%d", e.Emoji, e.Count)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("🎖 奖项\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	for i, a := range result.Awards {
		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, a.Title)
		fmt.Fprintf(&sb, "   🏅 %s\n", a.Recipient)
		if a.Evidence != "" {
			fmt.Fprintf(&sb, "   📌 %s\n", a.Evidence)
		}
		if a.Quip != "" {
			fmt.Fprintf(&sb, "   💬 %s\n", a.Quip)
		}
	}

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	if result.ModelUsed == model.ModelOffline {
		sb.WriteString("⚙️ 离线模式 (未调用任何外部服务)\n")
	} else {
		fmt.Fprintf(&sb, "⚙️ 模型: %s (输入 %d / 输出 %d tokens)\n",
			result.ModelUsed, result.InputTokens, result.OutputTokens)
	}
	if result.Error != "" {
		fmt.Fprintf(&sb, "⚠️ %s\n", result.Error)
	}

	return sb.String()
}

// SplitBlocks 将长文本按行边界切成不超过 maxBlockLength 的块，
// 单行超长时按字符硬切
func SplitBlocks(text string) []string {
	if len(text) <= maxBlockLength {
		return []string{text}
	}

	var blocks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxBlockLength {
			if current.Len() > 0 {
				blocks = append(blocks, current.String())
				current.Reset()
			}
			blocks = append(blocks, line[:maxBlockLength])
			line = line[maxBlockLength:]
		}
		if current.Len()+len(line)+1 > maxBlockLength {
			blocks = append(blocks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}
