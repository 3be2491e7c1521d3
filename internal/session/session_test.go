package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	t.Run("目录结构", func(t *testing.T) {
		base := t.TempDir()
		l := New(base, "/exports/holiday-chat.txt")

		assert.NotNil(t, l)
		assert.Contains(t, l.Dir(), filepath.Join(base, "holiday-chat"))

		info, err := os.Stat(filepath.Join(l.Dir(), "segments"))
		assert.NoError(t, err)
		assert.True(t, info.IsDir())

		data, err := os.ReadFile(filepath.Join(l.Dir(), "session_info.json"))
		assert.NoError(t, err)
		assert.Contains(t, string(data), "holiday-chat.txt")
	})

	t.Run("保存JSON与文本", func(t *testing.T) {
		l := New(t.TempDir(), "chat.txt")

		l.SaveJSON("result.json", map[string]int{"awards": 10})
		l.SaveText("prompt.txt", "the prompt")
		l.SaveSegment(3, map[string]string{"k": "v"})

		data, err := os.ReadFile(filepath.Join(l.Dir(), "result.json"))
		assert.NoError(t, err)
		assert.Contains(t, string(data), `"awards": 10`)

		_, err = os.Stat(filepath.Join(l.Dir(), "segments", "segment_003.json"))
		assert.NoError(t, err)
	})

	t.Run("nil接收者安全", func(t *testing.T) {
		var l *Logger

		assert.NotPanics(t, func() {
			l.SaveJSON("x.json", 1)
			l.SaveText("y.txt", "z")
			l.SaveSegment(0, nil)
			assert.Equal(t, "", l.Dir())
		})
	})

	t.Run("两次运行目录不同", func(t *testing.T) {
		base := t.TempDir()
		l1 := New(base, "chat.txt")
		l2 := New(base, "chat.txt")

		assert.NotEqual(t, l1.Dir(), l2.Dir())
	})
}
