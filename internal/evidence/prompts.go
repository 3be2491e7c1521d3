package evidence

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/segment"
)

// extractorSystemPrompt 证据提取阶段的系统提示词（分析对象为英文聊天导出，提示词保持英文）
const extractorSystemPrompt = `You are analyzing a chat conversation to find material for funny, affectionate "awards" - like Spotify Wrapped but for texting habits.

TONE: Write like you're telling a friend about something funny you noticed. Punchy and observational, not clinical or explanatory.

CRITICAL RULES:
1. BEHAVIORAL ONLY: Describe what people DO, never speculate about feelings or WHY
2. SPECIFICITY IS PROOF: Use exact quotes, counts, times - but make them land
3. WRITE PUNCHLINES, NOT REPORTS
4. RESTRAINT: Use "slightly", "a bit", "tends to" - never superlatives like "always" or "the most"
5. AFFECTIONATE ROASTING: Friends roast each other. Keep it loving - if they'd be hurt reading it, don't include it
6. SKIP: Anything genuinely embarrassing, private, mean-spirited, or just not that interesting

Output valid JSON only. No markdown code blocks, no explanation.`

// buildExtractorPrompt 为单个片段构造提取提示词
func buildExtractorPrompt(seg segment.Segment) string {
	participants := map[string]bool{}
	for _, m := range seg.Messages {
		if m.Sender != "" {
			participants[m.Sender] = true
		}
	}
	names := make([]string, 0, len(participants))
	for name := range participants {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this chat conversation between %s.\n\n", strings.Join(names, ", "))
	sb.WriteString("Find the funny, specific, shareable moments. Write observations you'd actually tell a friend.\n\n")
	sb.WriteString("<conversation>\n")
	sb.WriteString(seg.Text)
	sb.WriteString("</conversation>\n\n")
	sb.WriteString(`Return JSON (include empty arrays if nothing genuinely notable):

{
  "notable_quotes": [{"person": "Name", "quote": "exact quote", "punchline": "punchy observation"}],
  "inside_jokes": [{"reference": "the phrase", "punchline": "punchy description of what's going on"}],
  "dynamics": ["Punchy observation about how they interact"],
  "funny_moments": [{"description": "what happened - make it land"}],
  "style_notes": {"PersonName": ["punchy observation about their texting style"]},
  "award_ideas": [{"title": "Catchy 3-6 Word Title", "recipient": "Name", "evidence": "the specific thing that proves it"}],
  "conversation_snippets": [{"context": "brief setup", "exchange": [{"sender": "Name", "text": "exact message"}], "punchline": "why this exchange is gold"}],
  "contradictions": [{"person": "Name", "says": "what they claimed", "does": "what they actually did", "punchline": "punchy observation about the gap"}],
  "roasts": [{"person": "Name", "roast": "affectionate roast they'd laugh at", "evidence": "the specific thing that proves it"}]
}

ABOUT contradictions: the humor is in the gap between intention and reality.
ABOUT roasts: recurring mishaps, signature failures, endearing flaws - must be AFFECTIONATE.
ABOUT conversation_snippets: 2-5 messages forming a complete comedic beat; only capture truly good exchanges.

Max 3 items per category. conversation_snippets, contradictions, roasts: max 2 each. Only include genuinely funny/notable things.`)

	return sb.String()
}

// filterSystemPrompt 质量过滤阶段的系统提示词
const filterSystemPrompt = `You are a comedy editor filtering content for a "Spotify Wrapped"-style chat summary. Only the BEST stuff makes the cut.

KEEP content that is actually funny, genuinely memorable, uniquely characteristic, specific and quotable, or endearing.
REJECT boring logistics, generic interactions, mundane observations, and anything that's merely "fine".

Be RUTHLESS. If something is just "okay" or "mildly amusing" - reject it.

Return a JSON object with the filtered lists. Only include items that pass your quality bar.`

// buildFilterPrompt 构造完整过滤提示词：要求后端原样返回通过的条目
func buildFilterPrompt(set *model.EvidenceSet) string {
	var sb strings.Builder
	sb.WriteString("Review the following evidence extracted from a chat.\n")
	sb.WriteString("For each category, return ONLY the items that are genuinely funny, memorable, or interesting.\n")
	sb.WriteString("Be ruthless - reject anything boring, generic, or forgettable.\n\n")

	writeSection := func(title, hint string, items any, n int) {
		if n == 0 {
			return
		}
		data, _ := json.MarshalIndent(items, "", "  ")
		fmt.Fprintf(&sb, "## %s\n%s\n%s\n\n", title, hint, data)
	}
	writeSection("NOTABLE QUOTES", "Reject: mundane statements, boring observations.", set.NotableQuotes, len(set.NotableQuotes))
	writeSection("INSIDE JOKES", "Reject: one-off mentions, things that aren't actually funny.", set.InsideJokes, len(set.InsideJokes))
	writeSection("FUNNY MOMENTS", "Reject: mildly amusing things, mundane events.", set.FunnyMoments, len(set.FunnyMoments))
	writeSection("CONVERSATION SNIPPETS", "Reject: boring logistics, normal planning.", set.Snippets, len(set.Snippets))
	writeSection("RELATIONSHIP DYNAMICS", "Reject: generic observations, obvious statements.", set.Dynamics, len(set.Dynamics))
	writeSection("CONTRADICTIONS (Says X, Does Y)", "Reject: minor inconsistencies, anything not actually funny.", set.Contradictions, len(set.Contradictions))
	writeSection("ROASTS", "Reject: anything mean-spirited or that they'd be hurt by.", set.Roasts, len(set.Roasts))
	writeSection("AWARD IDEAS", "Reject: generic awards, vague ideas.", set.AwardIdeas, len(set.AwardIdeas))

	sb.WriteString(`---
Return a JSON object with these keys (include all keys even if the array is empty):
- notable_quotes, inside_jokes, funny_moments, conversation_snippets, dynamics, contradictions, roasts, award_ideas

Remember: Be RUTHLESS. Only the genuinely good stuff gets through.`)

	return sb.String()
}

// buildIndexFilterPrompt 构造紧凑的下标过滤提示词：只要求返回保留下标，
// 输出量小得多，不易截断（完整过滤失败后的回退策略）
func buildIndexFilterPrompt(set *model.EvidenceSet) string {
	var sb strings.Builder
	sb.WriteString("Review the evidence below. For each category, return ONLY the indices (0-based) of items worth keeping.\n")
	sb.WriteString("Be ruthless - only keep genuinely funny, memorable, or interesting items.\n\n")

	truncate := func(s string, n int) string {
		if len(s) > n {
			return s[:n]
		}
		return s
	}

	if len(set.NotableQuotes) > 0 {
		sb.WriteString("## NOTABLE QUOTES\n")
		for i, q := range set.NotableQuotes {
			fmt.Fprintf(&sb, "  [%d] %s: \"%s\"\n", i, q.Person, truncate(q.Quote, 100))
		}
		sb.WriteString("\n")
	}
	if len(set.InsideJokes) > 0 {
		sb.WriteString("## INSIDE JOKES\n")
		for i, j := range set.InsideJokes {
			fmt.Fprintf(&sb, "  [%d] \"%s\"\n", i, truncate(j.Reference, 100))
		}
		sb.WriteString("\n")
	}
	if len(set.FunnyMoments) > 0 {
		sb.WriteString("## FUNNY MOMENTS\n")
		for i, f := range set.FunnyMoments {
			fmt.Fprintf(&sb, "  [%d] %s\n", i, truncate(f.Description, 100))
		}
		sb.WriteString("\n")
	}
	if len(set.Snippets) > 0 {
		sb.WriteString("## CONVERSATION SNIPPETS\n")
		for i, s := range set.Snippets {
			fmt.Fprintf(&sb, "  [%d] %s\n", i, truncate(s.Context, 80))
		}
		sb.WriteString("\n")
	}
	if len(set.Dynamics) > 0 {
		sb.WriteString("## DYNAMICS\n")
		for i, d := range set.Dynamics {
			fmt.Fprintf(&sb, "  [%d] %s\n", i, truncate(d, 100))
		}
		sb.WriteString("\n")
	}
	if len(set.Contradictions) > 0 {
		sb.WriteString("## CONTRADICTIONS\n")
		for i, c := range set.Contradictions {
			fmt.Fprintf(&sb, "  [%d] %s: says '%s...'\n", i, c.Person, truncate(c.Says, 50))
		}
		sb.WriteString("\n")
	}
	if len(set.Roasts) > 0 {
		sb.WriteString("## ROASTS\n")
		for i, r := range set.Roasts {
			fmt.Fprintf(&sb, "  [%d] %s: %s\n", i, r.Person, truncate(r.Roast, 60))
		}
		sb.WriteString("\n")
	}
	if len(set.AwardIdeas) > 0 {
		sb.WriteString("## AWARD IDEAS\n")
		for i, a := range set.AwardIdeas {
			fmt.Fprintf(&sb, "  [%d] \"%s\" for %s\n", i, a.Title, a.Recipient)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`---
Return a JSON object with arrays of indices to KEEP for each category:
{
  "notable_quotes": [0, 2, 5],
  "inside_jokes": [1, 3],
  "funny_moments": [0, 4, 7],
  "conversation_snippets": [2],
  "dynamics": [0, 1],
  "contradictions": [0],
  "roasts": [1, 2],
  "award_ideas": [1, 3, 5]
}`)

	return sb.String()
}
