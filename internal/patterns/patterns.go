package patterns

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/stats"
)

// 模式种类标识
const (
	KindLateGoodMorning     = "late_good_morning"
	KindGoodnightThenTexts  = "goodnight_then_texts"
	KindMidnightPhilosopher = "midnight_philosopher"
	KindCatchphrase         = "catchphrase"
	KindLaughStyle          = "laugh_style"
	KindApology             = "apology_patterns"
	KindEllipsis            = "punctuation_habits"
	KindEmojiSignature      = "emoji_signature"
	KindTripleTexter        = "triple_texter"
	KindOneWordTexter       = "one_word_texter"
	KindInitiatorImbalance  = "initiator_imbalance"
	KindQuestionAsker       = "question_asker"
)

const (
	// minFrequency 低于该次数的观察不构成模式
	minFrequency = 3
	// minStrength 低于该强度的模式不上报
	minStrength = 0.3
)

var (
	reGoodMorning = regexp.MustCompile(`(?i)\b(good\s?morning|gm)\b`)
	reGoodnight   = regexp.MustCompile(`(?i)\b(good\s?night|gn|nighty?)\b`)
	reLaugh       = regexp.MustCompile(`(?i)\b(l+o+l+|l+m+a+o+|ha(ha)+|hehe+|jaja+)\b`)
	reApology     = regexp.MustCompile(`(?i)\b(sorry|my bad|apolog\w*|oops)\b`)
)

// Detect 在会话上运行全部启发式检测器，按强度降序返回检出的行为模式。
// 纯本地计算，离线模式下这是奖项的唯一素材来源。
func Detect(conv *model.Conversation) []model.DetectedPattern {
	msgs := conv.UserMessages()
	if len(msgs) == 0 {
		return nil
	}

	perPerson := map[string][]model.Message{}
	for _, m := range msgs {
		perPerson[m.Sender] = append(perPerson[m.Sender], m)
	}

	var out []model.DetectedPattern
	collect := func(ps ...model.DetectedPattern) {
		for _, p := range ps {
			if p.Frequency >= minFrequency && p.Strength >= minStrength {
				out = append(out, p)
			}
		}
	}

	for person, personMsgs := range perPerson {
		collect(detectLateGoodMorning(person, personMsgs))
		collect(detectGoodnightThenTexts(person, personMsgs))
		collect(detectMidnightPhilosopher(person, personMsgs))
		collect(detectCatchphrase(person, personMsgs))
		collect(detectLaughStyle(person, personMsgs))
		collect(detectApology(person, personMsgs))
		collect(detectEllipsis(person, personMsgs))
		collect(detectEmojiSignature(person, personMsgs))
		collect(detectOneWordTexter(person, personMsgs))
		collect(detectQuestionAsker(person, personMsgs))
	}
	collect(detectTripleTexter(msgs)...)
	collect(detectInitiatorImbalance(msgs)...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Strength > out[j].Strength
	})
	return out
}

func detectLateGoodMorning(person string, msgs []model.Message) model.DetectedPattern {
	total, late := 0, 0
	var latest time.Time
	for _, m := range msgs {
		if !reGoodMorning.MatchString(m.Text) {
			continue
		}
		total++
		if m.Timestamp.Hour() >= 11 {
			late++
			if m.Timestamp.After(latest) {
				latest = m.Timestamp
			}
		}
	}
	if total == 0 {
		return model.DetectedPattern{}
	}
	return model.DetectedPattern{
		Kind:      KindLateGoodMorning,
		Person:    person,
		Frequency: late,
		Strength:  float64(late) / float64(total),
		Description: fmt.Sprintf("said 'good morning' after 11am on %d occasions, latest at %s",
			late, latest.Format("15:04")),
	}
}

func detectGoodnightThenTexts(person string, msgs []model.Message) model.DetectedPattern {
	count := 0
	for i, m := range msgs {
		if !reGoodnight.MatchString(m.Text) {
			continue
		}
		// 道晚安后一小时内又发了至少 2 条
		after := 0
		for j := i + 1; j < len(msgs); j++ {
			if msgs[j].Timestamp.Sub(m.Timestamp) > time.Hour {
				break
			}
			after++
		}
		if after >= 2 {
			count++
		}
	}
	return model.DetectedPattern{
		Kind:      KindGoodnightThenTexts,
		Person:    person,
		Frequency: count,
		Strength:  clamp(float64(count) / 5),
		Description: fmt.Sprintf("said goodnight and then kept texting %d times",
			count),
	}
}

func detectMidnightPhilosopher(person string, msgs []model.Message) model.DetectedPattern {
	count := 0
	for _, m := range msgs {
		h := m.Timestamp.Hour()
		if h < 4 && (strings.Contains(m.Text, "?") || len(m.Text) > 80) {
			count++
		}
	}
	return model.DetectedPattern{
		Kind:      KindMidnightPhilosopher,
		Person:    person,
		Frequency: count,
		Strength:  clamp(float64(count) / 10),
		Description: fmt.Sprintf("sent %d long or questioning messages between midnight and 4am",
			count),
	}
}

func detectCatchphrase(person string, msgs []model.Message) model.DetectedPattern {
	counts := map[string]int{}
	for _, m := range msgs {
		text := strings.ToLower(strings.TrimSpace(m.Text))
		words := strings.Fields(text)
		if len(words) == 0 || len(words) > 3 || len(text) < 3 {
			continue
		}
		if reLaugh.MatchString(text) || isFiller(text) {
			continue
		}
		counts[text]++
	}
	best, bestCount := "", 0
	for phrase, n := range counts {
		if n > bestCount || (n == bestCount && phrase < best) {
			best, bestCount = phrase, n
		}
	}
	if bestCount < 5 {
		return model.DetectedPattern{}
	}
	return model.DetectedPattern{
		Kind:        KindCatchphrase,
		Person:      person,
		Frequency:   bestCount,
		Strength:    clamp(float64(bestCount) / 15),
		Description: fmt.Sprintf("sent %q verbatim %d times", best, bestCount),
	}
}

func detectLaughStyle(person string, msgs []model.Message) model.DetectedPattern {
	counts := map[string]int{}
	total := 0
	for _, m := range msgs {
		for _, match := range reLaugh.FindAllString(strings.ToLower(m.Text), -1) {
			counts[normalizeLaugh(match)]++
			total++
		}
	}
	best, bestCount := "", 0
	for laugh, n := range counts {
		if n > bestCount || (n == bestCount && laugh < best) {
			best, bestCount = laugh, n
		}
	}
	if total == 0 {
		return model.DetectedPattern{}
	}
	return model.DetectedPattern{
		Kind:      KindLaughStyle,
		Person:    person,
		Frequency: bestCount,
		Strength:  float64(bestCount) / float64(total),
		Description: fmt.Sprintf("laughs with %q - %d of %d laughs",
			best, bestCount, total),
	}
}

func detectApology(person string, msgs []model.Message) model.DetectedPattern {
	count := 0
	for _, m := range msgs {
		if reApology.MatchString(m.Text) {
			count++
		}
	}
	return model.DetectedPattern{
		Kind:        KindApology,
		Person:      person,
		Frequency:   count,
		Strength:    clamp(float64(count) * 20 / float64(len(msgs))),
		Description: fmt.Sprintf("apologized %d times across %d messages", count, len(msgs)),
	}
}

func detectEllipsis(person string, msgs []model.Message) model.DetectedPattern {
	count := 0
	for _, m := range msgs {
		if strings.Contains(m.Text, "...") || strings.Contains(m.Text, "…") {
			count++
		}
	}
	return model.DetectedPattern{
		Kind:        KindEllipsis,
		Person:      person,
		Frequency:   count,
		Strength:    clamp(float64(count) * 10 / float64(len(msgs))),
		Description: fmt.Sprintf("trailed off with '...' in %d messages", count),
	}
}

func detectEmojiSignature(person string, msgs []model.Message) model.DetectedPattern {
	counts := map[string]int{}
	total := 0
	for _, m := range msgs {
		for _, e := range stats.ExtractEmojis(m.Text) {
			counts[e]++
			total++
		}
	}
	best, bestCount := "", 0
	for e, n := range counts {
		if n > bestCount || (n == bestCount && e < best) {
			best, bestCount = e, n
		}
	}
	if total == 0 {
		return model.DetectedPattern{}
	}
	return model.DetectedPattern{
		Kind:      KindEmojiSignature,
		Person:    person,
		Frequency: bestCount,
		Strength:  float64(bestCount) / float64(total),
		Description: fmt.Sprintf("used %s %d times - %d%% of all their emoji",
			best, bestCount, bestCount*100/total),
	}
}

func detectOneWordTexter(person string, msgs []model.Message) model.DetectedPattern {
	count := 0
	for _, m := range msgs {
		if len(strings.Fields(m.Text)) == 1 {
			count++
		}
	}
	return model.DetectedPattern{
		Kind:        KindOneWordTexter,
		Person:      person,
		Frequency:   count,
		Strength:    float64(count) / float64(len(msgs)),
		Description: fmt.Sprintf("%d of %d messages were a single word", count, len(msgs)),
	}
}

func detectQuestionAsker(person string, msgs []model.Message) model.DetectedPattern {
	count := 0
	for _, m := range msgs {
		if strings.Contains(m.Text, "?") {
			count++
		}
	}
	return model.DetectedPattern{
		Kind:        KindQuestionAsker,
		Person:      person,
		Frequency:   count,
		Strength:    float64(count) / float64(len(msgs)),
		Description: fmt.Sprintf("asked questions in %d of %d messages", count, len(msgs)),
	}
}

// detectTripleTexter 连发检测：5 分钟内同一人连续 3 条以上
func detectTripleTexter(msgs []model.Message) []model.DetectedPattern {
	runs := map[string]int{}
	runLen := 1
	for i := 1; i <= len(msgs); i++ {
		if i < len(msgs) && msgs[i].Sender == msgs[i-1].Sender &&
			msgs[i].Timestamp.Sub(msgs[i-1].Timestamp) <= 5*time.Minute {
			runLen++
			continue
		}
		if runLen >= 3 {
			runs[msgs[i-1].Sender]++
		}
		runLen = 1
	}

	var out []model.DetectedPattern
	for person, n := range runs {
		out = append(out, model.DetectedPattern{
			Kind:        KindTripleTexter,
			Person:      person,
			Frequency:   n,
			Strength:    clamp(float64(n) / 10),
			Description: fmt.Sprintf("fired off 3+ messages in a row %d times", n),
		})
	}
	return out
}

// detectInitiatorImbalance 开场检测：间隔超过 4 小时后的首条消息算开场
func detectInitiatorImbalance(msgs []model.Message) []model.DetectedPattern {
	initiations := map[string]int{}
	total := 0
	for i, m := range msgs {
		if i == 0 || m.Timestamp.Sub(msgs[i-1].Timestamp) > 4*time.Hour {
			initiations[m.Sender]++
			total++
		}
	}
	if total < minFrequency {
		return nil
	}

	var out []model.DetectedPattern
	for person, n := range initiations {
		share := float64(n) / float64(total)
		if share < 0.7 {
			continue
		}
		out = append(out, model.DetectedPattern{
			Kind:      KindInitiatorImbalance,
			Person:    person,
			Frequency: n,
			Strength:  share,
			Description: fmt.Sprintf("started %d of %d conversations (%d%%)",
				n, total, int(share*100)),
		})
	}
	return out
}

func normalizeLaugh(s string) string {
	switch {
	case strings.HasPrefix(s, "lol"), strings.HasPrefix(s, "looo"):
		return "lol"
	case strings.HasPrefix(s, "lma"):
		return "lmao"
	case strings.HasPrefix(s, "ha"):
		return "haha"
	case strings.HasPrefix(s, "he"):
		return "hehe"
	case strings.HasPrefix(s, "ja"):
		return "jaja"
	}
	return s
}

func isFiller(text string) bool {
	switch text {
	case "ok", "okay", "yes", "no", "yeah", "yep", "nope", "hi", "hey",
		"hello", "bye", "thanks", "thank you", "good", "nice", "cool",
		"sure", "fine", "same", "true", "right":
		return true
	}
	return false
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
