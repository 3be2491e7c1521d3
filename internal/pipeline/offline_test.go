package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/patterns"
)

func makePatterns(person string, n int) []model.DetectedPattern {
	kinds := []string{
		patterns.KindMidnightPhilosopher, patterns.KindCatchphrase,
		patterns.KindLaughStyle, patterns.KindApology,
		patterns.KindEllipsis, patterns.KindEmojiSignature,
		patterns.KindTripleTexter, patterns.KindQuestionAsker,
	}
	out := make([]model.DetectedPattern, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.DetectedPattern{
			Kind:        kinds[i%len(kinds)],
			Person:      person,
			Frequency:   10 - i,
			Strength:    1 - float64(i)*0.05,
			Description: fmt.Sprintf("did the thing %d times", 10-i),
		})
	}
	return out
}

func offlineStats() *model.Statistics {
	return &model.Statistics{
		MessagesPerPerson: map[string]int{"Sam": 60, "Alex": 40},
	}
}

func TestOfflineAwards(t *testing.T) {
	t.Run("奖项数量不超过上限", func(t *testing.T) {
		detected := append(makePatterns("Sam", 4), makePatterns("Alex", 4)...)
		awards := OfflineAwards(offlineStats(), detected)

		assert.LessOrEqual(t, len(awards), maxOfflineAwards)
	})

	t.Run("单人奖项不超过上限", func(t *testing.T) {
		detected := makePatterns("Sam", 8)
		awards := OfflineAwards(offlineStats(), detected)

		count := 0
		for _, a := range awards {
			if a.Recipient == "Sam" {
				count++
			}
		}
		assert.LessOrEqual(t, count, maxOfflinePerPerson)
	})

	t.Run("没有模式的参与者获得参与奖", func(t *testing.T) {
		detected := makePatterns("Sam", 2)
		awards := OfflineAwards(offlineStats(), detected)

		var alexAward *model.Award
		for i := range awards {
			if awards[i].Recipient == "Alex" {
				alexAward = &awards[i]
			}
		}
		assert.NotNil(t, alexAward)
		assert.Equal(t, "Active Participant Award", alexAward.Title)
		assert.Contains(t, alexAward.Evidence, "40")
	})

	t.Run("无任何模式时人人有参与奖", func(t *testing.T) {
		awards := OfflineAwards(offlineStats(), nil)

		assert.Len(t, awards, 2)
		for _, a := range awards {
			assert.Equal(t, "Active Participant Award", a.Title)
		}
	})

	t.Run("模式种类映射到奖项标题", func(t *testing.T) {
		detected := []model.DetectedPattern{{
			Kind: patterns.KindMidnightPhilosopher, Person: "Sam",
			Frequency: 9, Strength: 0.9, Description: "sent 9 messages after midnight",
		}}
		awards := OfflineAwards(offlineStats(), detected)

		assert.Equal(t, "The 2am Philosopher Award", awards[0].Title)
		assert.Equal(t, "sent 9 messages after midnight", awards[0].Evidence)
	})
}
