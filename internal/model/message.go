package model

import (
	"time"
)

// ChatType 聊天类型
type ChatType string

const (
	ChatTypeOneOnOne ChatType = "1-on-1"
	ChatTypeGroup    ChatType = "group"
)

// Message 单条聊天消息，由解析器创建，流水线只读
type Message struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"` // 系统消息为空
	Text      string    `json:"text"`
	IsSystem  bool      `json:"is_system"`
	IsMedia   bool      `json:"is_media"`
	IsDeleted bool      `json:"is_deleted"`
	HasLink   bool      `json:"has_link"`
}

// Conversation 完整会话及元数据
type Conversation struct {
	Messages     []Message `json:"messages"`
	ChatType     ChatType  `json:"chat_type"`
	Participants []string  `json:"participants"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	SourceFile   string    `json:"source_file"`
}

// UserMessages 返回用户消息（过滤系统消息和无发送者的消息）
func (c *Conversation) UserMessages() []Message {
	result := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.IsSystem || m.Sender == "" {
			continue
		}
		result = append(result, m)
	}
	return result
}
