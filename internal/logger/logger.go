package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 双路日志：控制台彩色输出 + 文件 JSON 轮转
type Logger struct {
	console *logrus.Logger
	file    *logrus.Logger
}

var (
	defaultLogger *Logger
	initOnce      sync.Once
)

func newLogger(logDir string) *Logger {
	console := logrus.New()
	console.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	console.SetOutput(os.Stdout)
	console.SetLevel(logrus.DebugLevel)

	file := logrus.New()
	file.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	file.SetLevel(logrus.InfoLevel)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		console.Errorf("无法创建日志目录: %v", err)
	}
	file.SetOutput(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "chat-unwrapped.log"),
		MaxSize:    10,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	})

	return &Logger{console: console, file: file}
}

func get() *Logger {
	initOnce.Do(func() {
		if defaultLogger == nil {
			defaultLogger = newLogger("logs")
		}
	})
	return defaultLogger
}

// Init 使用指定目录初始化默认日志器，需在首次输出日志前调用
func Init(logDir string) {
	initOnce.Do(func() {
		defaultLogger = newLogger(logDir)
	})
}

func Debugf(format string, args ...any) {
	l := get()
	l.console.Debugf(format, args...)
	l.file.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	l := get()
	l.console.Infof(format, args...)
	l.file.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	l := get()
	l.console.Warnf(format, args...)
	l.file.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	l := get()
	l.console.Errorf(format, args...)
	l.file.Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	l := get()
	l.file.Errorf(format, args...)
	l.console.Fatalf(format, args...)
}
