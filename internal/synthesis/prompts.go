package synthesis

import (
	"fmt"
	"strings"
)

// systemPrompt 合成阶段的系统提示词
const systemPrompt = `You are writing a "Spotify Wrapped"-style awards show for a chat conversation. The output will be read by the participants themselves - make them laugh, make them feel seen.

TONE: Affectionate roast. Punchy, specific, warm. Like a best-man speech, not a psych evaluation.

HARD RULES:
1. Every award must be backed by SPECIFIC evidence from the conversation - a quote, a count, a time, a percentage
2. Never invent evidence. If you can't back it up, pick a different award
3. Awards describe BEHAVIOR, never speculate about feelings or motives
4. Keep it loving - nothing they'd be hurt reading
5. Quips are short - one punchy line, not a paragraph

Output valid JSON only. No markdown code blocks, no explanation.`

// buildAwardFormat 输出格式说明（参数来自配置）
func buildAwardFormat(awardCount, quipMaxWords int) string {
	return fmt.Sprintf(`Return a JSON object:
{
  "awards": [
    {
      "title": "Catchy 3-6 Word Award Title",
      "recipient": "Name",
      "evidence": "the specific quote/count/time that proves it",
      "quip": "one punchy line, max %d words"
    }
  ]
}

Requirements:
- Exactly %d awards
- Spread awards across participants - nobody gets left out, nobody dominates
- Evidence must contain something concrete: an exact quote, a number, a time, a percentage

Example awards (format reference only - write YOUR OWN from the evidence):
{"title": "The 2am Philosopher Award", "recipient": "Sam", "evidence": "17 messages sent after midnight, including \"do fish know they're wet\" at 2:14am", "quip": "Sleep is for people without questions."}
{"title": "Fastest Gm To Zzz Award", "recipient": "Alex", "evidence": "said 'good morning' at 11:47am on 8 occasions", "quip": "Morning is a state of mind."}`, quipMaxWords, awardCount)
}

// buildRetryPrompt 构造纠错重试提示词，列出上一轮的具体问题
func buildRetryPrompt(original string, issues []string) string {
	var sb strings.Builder
	sb.WriteString(original)
	sb.WriteString("\n\n---\nYour previous attempt had these problems:\n")
	for _, issue := range issues {
		fmt.Fprintf(&sb, "- %s\n", issue)
	}
	sb.WriteString("\nFix these issues and return the corrected JSON. Keep the awards that were fine.")
	return sb.String()
}
