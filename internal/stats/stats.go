package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/fachebot/chat-unwrapped/internal/model"
)

// conversationGap 消息间隔超过该值视为新一轮会话
const conversationGap = 4 * time.Hour

// topEmojiCount 统计结果保留的 emoji 种类数
const topEmojiCount = 10

// ExtractEmojis 提取文本中的 emoji（常用 Unicode 区段）
func ExtractEmojis(text string) []string {
	var out []string
	for _, r := range text {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF, // 符号、表情、补充区
			r >= 0x2600 && r <= 0x27BF, // 杂项符号与装饰符号
			r == 0x2764:                // 红心
			out = append(out, string(r))
		}
	}
	return out
}

// Compute 计算会话的描述性统计，纯本地计算，不访问网络
func Compute(conv *model.Conversation) *model.Statistics {
	s := &model.Statistics{
		MessagesPerPerson: map[string]int{},
		AvgMessageLength:  map[string]float64{},
		Initiators:        map[string]int{},
		BusiestHour:       -1,
	}

	msgs := conv.UserMessages()
	if len(msgs) == 0 {
		return s
	}

	wordsPerPerson := map[string]int{}
	emojiCounts := map[string]int{}
	var prevTime time.Time

	for i, m := range msgs {
		s.TotalMessages++
		words := len(strings.Fields(m.Text))
		s.TotalWords += words
		s.MessagesPerPerson[m.Sender]++
		wordsPerPerson[m.Sender] += words

		s.HourHistogram[m.Timestamp.Hour()]++
		s.WeekdayHistogram[int(m.Timestamp.Weekday())]++

		for _, e := range ExtractEmojis(m.Text) {
			emojiCounts[e]++
		}

		if i == 0 || m.Timestamp.Sub(prevTime) > conversationGap {
			s.ConversationCount++
			s.Initiators[m.Sender]++
		}
		prevTime = m.Timestamp
	}

	for person, n := range s.MessagesPerPerson {
		s.AvgMessageLength[person] = float64(wordsPerPerson[person]) / float64(n)
	}

	s.FirstMessage = msgs[0].Timestamp
	s.LastMessage = msgs[len(msgs)-1].Timestamp

	maxCount := 0
	for hour, n := range s.HourHistogram {
		if n > maxCount {
			maxCount = n
			s.BusiestHour = hour
		}
	}

	s.TopEmojis = make([]model.EmojiCount, 0, len(emojiCounts))
	for e, n := range emojiCounts {
		s.TopEmojis = append(s.TopEmojis, model.EmojiCount{Emoji: e, Count: n})
	}
	sort.Slice(s.TopEmojis, func(i, j int) bool {
		if s.TopEmojis[i].Count != s.TopEmojis[j].Count {
			return s.TopEmojis[i].Count > s.TopEmojis[j].Count
		}
		return s.TopEmojis[i].Emoji < s.TopEmojis[j].Emoji
	})
	if len(s.TopEmojis) > topEmojiCount {
		s.TopEmojis = s.TopEmojis[:topEmojiCount]
	}

	return s
}
