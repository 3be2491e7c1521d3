package scheduler

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/fachebot/chat-unwrapped/internal/logger"
)

// ProcessFunc 处理单个导出文件；返回 true 表示实际执行了处理
type ProcessFunc func(path string) (bool, error)

// Scheduler 按 cron 表达式定期扫描导出目录，处理新出现的文件
type Scheduler struct {
	mutex   sync.Mutex
	cron    *cron.Cron
	dir     string
	spec    string
	process ProcessFunc
	running bool
}

func NewScheduler(dir, spec string, process ProcessFunc) *Scheduler {
	return &Scheduler{dir: dir, spec: spec, process: process}
}

// Start 启动定时任务，重复调用无效果
func (s *Scheduler) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.spec, s.scan); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true

	logger.Infof("[Scheduler] 定时任务已启动, cron=%s, dir=%s", s.spec, s.dir)
	return nil
}

// Stop 停止定时任务，等待进行中的扫描结束
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	logger.Infof("[Scheduler] 定时任务已停止")
}

// scan 扫描目录下的 .txt 导出文件并逐个处理
func (s *Scheduler) scan() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		logger.Errorf("[Scheduler] 扫描目录失败, dir: %s, %s", s.dir, err)
		return
	}

	processed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		done, err := s.process(path)
		if err != nil {
			logger.Errorf("[Scheduler] 处理文件失败, file: %s, %s", path, err)
			continue
		}
		if done {
			processed++
		}
	}
	if processed > 0 {
		logger.Infof("[Scheduler] 本轮扫描处理了 %d 个文件", processed)
	}
}
