package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fachebot/chat-unwrapped/internal/model"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.Local)
}

func TestCompute(t *testing.T) {
	t.Run("基础计数", func(t *testing.T) {
		conv := &model.Conversation{Messages: []model.Message{
			{Timestamp: at(1, 9, 0), Sender: "Sam", Text: "good morning friend"},
			{Timestamp: at(1, 9, 1), Sender: "Alex", Text: "morning"},
			{Timestamp: at(1, 9, 2), Sender: "Sam", Text: "coffee time"},
		}}
		s := Compute(conv)

		assert.Equal(t, 3, s.TotalMessages)
		assert.Equal(t, 6, s.TotalWords)
		assert.Equal(t, 2, s.MessagesPerPerson["Sam"])
		assert.Equal(t, 1, s.MessagesPerPerson["Alex"])
		assert.InDelta(t, 2.5, s.AvgMessageLength["Sam"], 0.001)
	})

	t.Run("系统消息不计入", func(t *testing.T) {
		conv := &model.Conversation{Messages: []model.Message{
			{Timestamp: at(1, 9, 0), Sender: "", IsSystem: true, Text: "group created"},
			{Timestamp: at(1, 9, 1), Sender: "Sam", Text: "hi"},
		}}
		s := Compute(conv)

		assert.Equal(t, 1, s.TotalMessages)
	})

	t.Run("会话轮次与发起人", func(t *testing.T) {
		conv := &model.Conversation{Messages: []model.Message{
			{Timestamp: at(1, 9, 0), Sender: "Sam", Text: "hi"},
			{Timestamp: at(1, 9, 5), Sender: "Alex", Text: "hi"},
			// 超过 4 小时，新一轮
			{Timestamp: at(1, 20, 0), Sender: "Sam", Text: "dinner?"},
			// 次日再一轮
			{Timestamp: at(2, 10, 0), Sender: "Alex", Text: "morning"},
		}}
		s := Compute(conv)

		assert.Equal(t, 3, s.ConversationCount)
		assert.Equal(t, 2, s.Initiators["Sam"])
		assert.Equal(t, 1, s.Initiators["Alex"])
	})

	t.Run("最活跃时段", func(t *testing.T) {
		conv := &model.Conversation{Messages: []model.Message{
			{Timestamp: at(1, 22, 0), Sender: "Sam", Text: "a"},
			{Timestamp: at(1, 22, 10), Sender: "Sam", Text: "b"},
			{Timestamp: at(1, 9, 0), Sender: "Sam", Text: "c"},
		}}
		s := Compute(conv)

		assert.Equal(t, 22, s.BusiestHour)
		assert.Equal(t, 2, s.HourHistogram[22])
	})

	t.Run("emoji统计", func(t *testing.T) {
		conv := &model.Conversation{Messages: []model.Message{
			{Timestamp: at(1, 9, 0), Sender: "Sam", Text: "😂😂😂"},
			{Timestamp: at(1, 9, 1), Sender: "Alex", Text: "🔥 nice"},
		}}
		s := Compute(conv)

		assert.Equal(t, "😂", s.TopEmojis[0].Emoji)
		assert.Equal(t, 3, s.TopEmojis[0].Count)
	})

	t.Run("空会话", func(t *testing.T) {
		s := Compute(&model.Conversation{})

		assert.Equal(t, 0, s.TotalMessages)
		assert.Equal(t, -1, s.BusiestHour)
	})
}

func TestParticipants(t *testing.T) {
	s := &model.Statistics{MessagesPerPerson: map[string]int{
		"Alex": 40, "Sam": 60, "Jordan": 40,
	}}

	// 消息数降序，并列时按名字排序
	assert.Equal(t, []string{"Sam", "Alex", "Jordan"}, s.Participants())
}

func TestExtractEmojis(t *testing.T) {
	assert.Equal(t, []string{"😂", "🔥"}, ExtractEmojis("haha 😂 that's 🔥"))
	assert.Empty(t, ExtractEmojis("plain text only"))
}
