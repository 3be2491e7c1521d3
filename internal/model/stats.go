package model

import "time"

// EmojiCount emoji 及其出现次数
type EmojiCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Statistics 会话的描述性统计，由统计模块预先计算，流水线只读
type Statistics struct {
	TotalMessages     int                `json:"total_messages"`
	TotalWords        int                `json:"total_words"`
	MessagesPerPerson map[string]int     `json:"messages_per_person"`
	AvgMessageLength  map[string]float64 `json:"avg_message_length"` // 平均词数
	FirstMessage      time.Time          `json:"first_message"`
	LastMessage       time.Time          `json:"last_message"`
	ConversationCount int                `json:"conversation_count"` // 会话轮次（间隔超过阈值视为新一轮）
	BusiestHour       int                `json:"busiest_hour"`       // 无数据时为 -1
	HourHistogram     [24]int            `json:"hour_histogram"`
	WeekdayHistogram  [7]int             `json:"weekday_histogram"`
	Initiators        map[string]int     `json:"initiators"`
	TopEmojis         []EmojiCount       `json:"top_emojis"`
}

// Participants 按消息数降序返回参与者列表
func (s *Statistics) Participants() []string {
	result := make([]string, 0, len(s.MessagesPerPerson))
	for person := range s.MessagesPerPerson {
		result = append(result, person)
	}
	// 简单选择排序，参与者数量很小
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if s.MessagesPerPerson[result[j]] > s.MessagesPerPerson[result[i]] ||
				(s.MessagesPerPerson[result[j]] == s.MessagesPerPerson[result[i]] && result[j] < result[i]) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result
}
