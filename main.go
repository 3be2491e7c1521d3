package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fachebot/chat-unwrapped/internal/config"
	"github.com/fachebot/chat-unwrapped/internal/logger"
	"github.com/fachebot/chat-unwrapped/internal/parser"
	"github.com/fachebot/chat-unwrapped/internal/pipeline"
	"github.com/fachebot/chat-unwrapped/internal/report"
	"github.com/fachebot/chat-unwrapped/internal/scheduler"
	"github.com/fachebot/chat-unwrapped/internal/session"
	"github.com/fachebot/chat-unwrapped/internal/stats"
	"github.com/fachebot/chat-unwrapped/internal/svc"
)

var (
	configFile = flag.String("f", "etc/config.yaml", "配置文件路径")
	inputFile  = flag.String("i", "", "聊天导出文件路径")
	outputFile = flag.String("o", "", "报告输出路径, 为空时打印到标准输出")
	offline    = flag.Bool("offline", false, "强制离线模式, 不调用任何外部服务")
	watch      = flag.Bool("watch", false, "监视模式, 按配置定期扫描导出目录")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %s\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogDir)

	ctx := context.Background()
	svcCtx, err := svc.NewServiceContext(ctx, cfg)
	if err != nil {
		logger.Fatalf("初始化服务上下文失败: %s", err)
	}
	defer svcCtx.Close()

	if *watch || cfg.Watch.Enable {
		runWatch(ctx, svcCtx)
		return
	}

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "用法: chat-unwrapped -i <聊天导出文件> [-o 输出文件] [-offline]")
		os.Exit(1)
	}
	if err := runOnce(ctx, svcCtx, *inputFile, *outputFile); err != nil {
		logger.Fatalf("处理失败: %s", err)
	}
}

// loadConfig 加载配置文件；文件不存在时使用默认配置（离线可用）
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(*configFile); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.LoadFromFile(*configFile)
}

// runOnce 处理单个导出文件
func runOnce(ctx context.Context, svcCtx *svc.ServiceContext, input, output string) error {
	conv, err := parser.ParseFile(input)
	if err != nil {
		return err
	}
	st := stats.Compute(conv)

	var sess *session.Logger
	if svcCtx.Config.Session.Enable {
		sess = session.New(svcCtx.Config.Session.Dir, input)
		if sess != nil {
			logger.Infof("调试日志目录: %s", sess.Dir())
		}
	}

	p := pipeline.New(svcCtx.Config, svcCtx.EvidenceProvider, svcCtx.SynthesisProvider)
	result := p.Generate(ctx, conv, st, pipeline.Options{
		Offline: *offline,
		Session: sess,
		Progress: func(e pipeline.ProgressEvent) {
			if e.Total > 0 {
				fmt.Fprintf(os.Stderr, "\r%s (%d/%d)", e.Message, e.Current, e.Total)
				if e.Current == e.Total {
					fmt.Fprintln(os.Stderr)
				}
			} else if e.Message != "" {
				fmt.Fprintln(os.Stderr, e.Message)
			}
		},
	})

	text := report.Render(conv, st, result)
	if output != "" {
		if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("写入报告失败: %w", err)
		}
		logger.Infof("报告已写入: %s", output)
	} else {
		fmt.Println(text)
	}

	if svcCtx.Archive != nil {
		if _, err := svcCtx.Archive.SaveResult(conv, result); err != nil {
			logger.Warnf("归档失败: %s", err)
		}
	}
	return nil
}

// runWatch 监视模式：定期扫描导出目录，处理未归档的新文件
func runWatch(ctx context.Context, svcCtx *svc.ServiceContext) {
	cfg := svcCtx.Config
	if cfg.Watch.Dir == "" || cfg.Watch.Cron == "" {
		logger.Fatalf("监视模式需要配置 Watch.Dir 和 Watch.Cron")
	}

	sched := scheduler.NewScheduler(cfg.Watch.Dir, cfg.Watch.Cron, func(path string) (bool, error) {
		if svcCtx.Archive != nil {
			done, err := svcCtx.Archive.HasRun(path)
			if err != nil {
				return false, err
			}
			if done {
				return false, nil
			}
		}
		output := path + ".unwrapped.txt"
		if err := runOnce(ctx, svcCtx, path, output); err != nil {
			return false, err
		}
		return true, nil
	})
	if err := sched.Start(); err != nil {
		logger.Fatalf("启动定时任务失败: %s", err)
	}
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("收到退出信号, 正在停止")
}
