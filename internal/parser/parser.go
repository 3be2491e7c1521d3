package parser

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/fachebot/chat-unwrapped/internal/logger"
	"github.com/fachebot/chat-unwrapped/internal/model"
)

// WhatsApp 导出的两种常见行首格式：
//
//	[2023/1/15, 10:30:45] Sam: text   （方括号格式，iOS）
//	1/15/23, 10:30 AM - Sam: text     （连字符格式，Android）
var (
	reBracket = regexp.MustCompile(`^\[(\d{1,4}[./-]\d{1,2}[./-]\d{1,4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?(?:[\s\x{202f}]?[APap][Mm])?)\]\s?(.*)$`)
	reDash    = regexp.MustCompile(`^(\d{1,4}[./-]\d{1,2}[./-]\d{1,4}),?\s+(\d{1,2}:\d{2}(?:[\s\x{202f}]?[APap][Mm])?)\s+-\s+(.*)$`)
	reLink    = regexp.MustCompile(`https?://`)
)

var dateLayouts = []string{
	"2006/1/2", "2006-1-2", "2006.1.2",
	"1/2/2006", "1-2-2006", "1.2.2006",
	"2/1/2006", // 日/月/年（月份无法超过 12 时的回退）
	"1/2/06", "2/1/06",
}

var timeLayouts = []string{
	"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "3:04PM",
}

var mediaMarkers = []string{
	"<Media omitted>", "image omitted", "video omitted",
	"audio omitted", "sticker omitted", "GIF omitted", "document omitted",
}

var deletedMarkers = []string{
	"This message was deleted", "You deleted this message",
}

var systemMarkers = []string{
	"Messages and calls are end-to-end encrypted",
	"created group", "added you", "changed the subject",
	"changed this group's icon", "left", "You joined",
	"changed their phone number",
}

// ParseFile 解析 WhatsApp 导出的聊天记录文件
func ParseFile(path string) (*model.Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开导出文件失败: %w", err)
	}
	defer f.Close()

	conv, err := parse(f, path)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func parse(f *os.File, path string) (*model.Conversation, error) {
	var messages []model.Message
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := cleanLine(scanner.Text())
		if line == "" {
			continue
		}

		ts, rest, ok := matchHeader(line)
		if !ok {
			// 续行：追加到上一条消息
			if len(messages) > 0 {
				messages[len(messages)-1].Text += "\n" + line
			} else {
				skipped++
			}
			continue
		}

		m := model.Message{Index: len(messages), Timestamp: ts}
		if sender, text, found := strings.Cut(rest, ": "); found {
			m.Sender = strings.TrimSpace(sender)
			m.Text = text
		} else {
			// 没有 "Sender: " 的行是系统消息
			m.IsSystem = true
			m.Text = rest
		}
		classify(&m)
		messages = append(messages, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取导出文件失败: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("文件中没有可识别的消息: %s", path)
	}
	if skipped > 0 {
		logger.Debugf("[Parser] 跳过 %d 行无法识别的前置内容", skipped)
	}

	conv := &model.Conversation{
		Messages:   messages,
		SourceFile: path,
		StartTime:  messages[0].Timestamp,
		EndTime:    messages[len(messages)-1].Timestamp,
	}

	seen := map[string]bool{}
	for _, m := range messages {
		if m.Sender != "" && !m.IsSystem && !seen[m.Sender] {
			seen[m.Sender] = true
			conv.Participants = append(conv.Participants, m.Sender)
		}
	}
	if len(conv.Participants) > 2 {
		conv.ChatType = model.ChatTypeGroup
	} else {
		conv.ChatType = model.ChatTypeOneOnOne
	}

	logger.Infof("[Parser] 解析完成: %d 条消息, %d 位参与者, 类型 %s",
		len(messages), len(conv.Participants), conv.ChatType)
	return conv, nil
}

// cleanLine 去掉导出文件中常见的不可见控制字符
func cleanLine(line string) string {
	line = strings.ReplaceAll(line, "\u200e", "")
	line = strings.ReplaceAll(line, "\u200f", "")
	line = strings.ReplaceAll(line, "\ufeff", "")
	return strings.TrimRight(line, " \t")
}

// matchHeader 尝试把一行识别为消息行首，返回时间戳与剩余内容
func matchHeader(line string) (time.Time, string, bool) {
	for _, re := range []*regexp.Regexp{reBracket, reDash} {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, ok := parseTimestamp(m[1], m[2])
		if !ok {
			continue
		}
		return ts, m[3], true
	}
	return time.Time{}, "", false
}

func parseTimestamp(datePart, timePart string) (time.Time, bool) {
	// iOS 导出在 AM/PM 前使用窄不换行空格 U+202F
	timePart = strings.ReplaceAll(timePart, "\u202f", " ")
	timePart = strings.ToUpper(timePart)
	for _, dl := range dateLayouts {
		d, err := time.Parse(dl, normalizeSeparators(datePart, dl))
		if err != nil {
			continue
		}
		for _, tl := range timeLayouts {
			t, err := time.Parse(tl, timePart)
			if err != nil {
				continue
			}
			return time.Date(d.Year(), d.Month(), d.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.Local), true
		}
	}
	return time.Time{}, false
}

// normalizeSeparators 把日期分隔符统一成目标布局使用的分隔符
func normalizeSeparators(date, layout string) string {
	var sep string
	switch {
	case strings.Contains(layout, "/"):
		sep = "/"
	case strings.Contains(layout, "-"):
		sep = "-"
	default:
		sep = "."
	}
	date = strings.ReplaceAll(date, "/", sep)
	date = strings.ReplaceAll(date, "-", sep)
	date = strings.ReplaceAll(date, ".", sep)
	return date
}

func classify(m *model.Message) {
	for _, marker := range mediaMarkers {
		if strings.Contains(m.Text, marker) {
			m.IsMedia = true
			break
		}
	}
	for _, marker := range deletedMarkers {
		if strings.Contains(m.Text, marker) {
			m.IsDeleted = true
			break
		}
	}
	if !m.IsSystem {
		for _, marker := range systemMarkers {
			if strings.Contains(m.Text, marker) {
				m.IsSystem = true
				break
			}
		}
	}
	m.HasLink = reLink.MatchString(m.Text)
}
