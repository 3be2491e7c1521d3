package synthesis

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fachebot/chat-unwrapped/internal/model"
)

func makeMessages(n int) []model.Message {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	msgs := make([]model.Message, n)
	for i := range msgs {
		msgs[i] = model.Message{
			Index:     i,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Sender:    "Sam",
			Text:      fmt.Sprintf("message %d", i),
		}
	}
	return msgs
}

func TestSelectSamples(t *testing.T) {
	t.Run("消息不足时全部返回", func(t *testing.T) {
		msgs := makeMessages(10)
		samples := SelectSamples(msgs, 50)
		assert.Len(t, samples, 10)
	})

	t.Run("样本数不超过上限", func(t *testing.T) {
		msgs := makeMessages(500)
		samples := SelectSamples(msgs, 50)
		assert.LessOrEqual(t, len(samples), 50)
		assert.Greater(t, len(samples), 30)
	})

	t.Run("样本按时间有序", func(t *testing.T) {
		msgs := makeMessages(300)
		samples := SelectSamples(msgs, 30)
		for i := 1; i < len(samples); i++ {
			assert.True(t, samples[i].Timestamp.After(samples[i-1].Timestamp))
		}
	})

	t.Run("包含会话末尾的消息", func(t *testing.T) {
		msgs := makeMessages(300)
		samples := SelectSamples(msgs, 30)
		assert.Equal(t, 299, samples[len(samples)-1].Index)
	})

	t.Run("表达力强的消息被优先选中", func(t *testing.T) {
		msgs := makeMessages(300)
		msgs[42].Text = "WHAT!!! 😂😂 no way this actually happened???"

		samples := SelectSamples(msgs, 12)
		found := false
		for _, m := range samples {
			if m.Index == 42 {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("零上限返回空", func(t *testing.T) {
		assert.Nil(t, SelectSamples(makeMessages(10), 0))
	})
}

func TestBuildPrompt(t *testing.T) {
	stats := &model.Statistics{
		TotalMessages:     100,
		TotalWords:        800,
		MessagesPerPerson: map[string]int{"Sam": 60, "Alex": 40},
		AvgMessageLength:  map[string]float64{"Sam": 7.5, "Alex": 9.0},
		BusiestHour:       22,
		TopEmojis:         []model.EmojiCount{{Emoji: "😂", Count: 30}},
	}

	t.Run("包含统计与格式要求", func(t *testing.T) {
		prompt := buildPrompt(promptInput{
			Stats: stats, AwardCount: 10, MaxPerson: 6, QuipWords: 15,
		})

		assert.Contains(t, prompt, "Sam, Alex")
		assert.Contains(t, prompt, "Total messages: 100")
		assert.Contains(t, prompt, "Exactly 10 awards")
		assert.Contains(t, prompt, "max 15 words")
	})

	t.Run("证据集嵌入提示词", func(t *testing.T) {
		set := &model.EvidenceSet{
			NotableQuotes: []model.Quote{{Person: "Sam", Quote: "do fish know they're wet"}},
			StyleNotes:    map[string][]string{},
		}
		prompt := buildPrompt(promptInput{
			Stats: stats, Evidence: set, AwardCount: 10, MaxPerson: 6, QuipWords: 15,
		})

		assert.Contains(t, prompt, "EVIDENCE FROM THE CONVERSATION")
		assert.Contains(t, prompt, "do fish know they're wet")
	})

	t.Run("无证据时不含证据段落", func(t *testing.T) {
		prompt := buildPrompt(promptInput{
			Stats: stats, AwardCount: 10, MaxPerson: 6, QuipWords: 15,
		})
		assert.NotContains(t, prompt, "EVIDENCE FROM THE CONVERSATION")
	})

	t.Run("模式数量受限", func(t *testing.T) {
		patterns := make([]model.DetectedPattern, 20)
		for i := range patterns {
			patterns[i] = model.DetectedPattern{
				Person: "Sam", Frequency: 5,
				Description: fmt.Sprintf("pattern-%d", i),
			}
		}
		prompt := buildPrompt(promptInput{
			Stats: stats, Patterns: patterns, AwardCount: 10, MaxPerson: 6, QuipWords: 15,
		})

		assert.Contains(t, prompt, "pattern-9")
		assert.NotContains(t, prompt, "pattern-10")
		assert.Equal(t, 10, strings.Count(prompt, "pattern-"))
	})

	t.Run("消息样例嵌入提示词", func(t *testing.T) {
		prompt := buildPrompt(promptInput{
			Stats: stats, Samples: makeMessages(3), AwardCount: 10, MaxPerson: 6, QuipWords: 15,
		})
		assert.Contains(t, prompt, "SAMPLE MESSAGES")
		assert.Contains(t, prompt, "message 2")
	})
}
