package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fachebot/chat-unwrapped/internal/logger"
)

// Logger 把流水线每个阶段的中间产物落盘，便于事后排查
// 提示词和模型输出。nil 接收者安全：所有方法都是空操作。
type Logger struct {
	dir string
}

// New 为一次运行创建调试日志目录：<baseDir>/<源文件名>/<时间戳>_<短ID>/。
// 创建失败只告警不中断（调试日志不值得让流水线失败）。
func New(baseDir, sourceFile string) *Logger {
	stem := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	if stem == "" {
		stem = "unknown"
	}
	id := uuid.NewString()[:8]
	dir := filepath.Join(baseDir, stem, fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), id))

	if err := os.MkdirAll(filepath.Join(dir, "segments"), 0o755); err != nil {
		logger.Warnf("[Session] 创建调试日志目录失败: %s", err)
		return nil
	}

	l := &Logger{dir: dir}
	l.SaveJSON("session_info.json", map[string]string{
		"source":     sourceFile,
		"created_at": time.Now().Format(time.RFC3339),
	})
	return l
}

// Dir 返回本次运行的调试目录，nil 时为空串
func (l *Logger) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

// SaveJSON 将对象序列化后写入调试目录
func (l *Logger) SaveJSON(name string, v any) {
	if l == nil {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Warnf("[Session] 序列化 %s 失败: %s", name, err)
		return
	}
	l.write(name, data)
}

// SaveText 将文本写入调试目录
func (l *Logger) SaveText(name, content string) {
	if l == nil {
		return
	}
	l.write(name, []byte(content))
}

// SaveSegment 保存单个片段的证据包
func (l *Logger) SaveSegment(idx int, v any) {
	l.SaveJSON(filepath.Join("segments", fmt.Sprintf("segment_%03d.json", idx)), v)
}

func (l *Logger) write(name string, data []byte) {
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warnf("[Session] 写入 %s 失败: %s", path, err)
	}
}
