package evidence

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/fachebot/chat-unwrapped/internal/logger"
	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/provider"
	"github.com/fachebot/chat-unwrapped/internal/segment"
)

// segmentExtractor 提取器接口，便于测试注入 mock
type segmentExtractor interface {
	Extract(ctx context.Context, seg segment.Segment) (model.EvidencePacket, int, int, error)
}

// GatherResult 批量提取的结果与统计
type GatherResult struct {
	mu           sync.Mutex
	Packets      []model.EvidencePacket // 与片段一一对应（失败片段为空包）
	InputTokens  int
	OutputTokens int
	Failed       int // 提取失败的片段数
	ProviderErrs int // 其中因后端不可用失败的片段数
}

// ProgressFunc 片段级进度回调，done 为已完成片段数
type ProgressFunc func(done, total int)

// Gatherer 跨片段批量提取证据，片段数多时启用受限并发工作池
type Gatherer struct {
	extractor   segmentExtractor
	concurrency int
}

func NewGatherer(p provider.Provider, concurrency int) *Gatherer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Gatherer{extractor: NewExtractor(p), concurrency: concurrency}
}

// Gather 提取所有片段的证据包。单个片段失败不会中断整体：
// 该片段记为空包，整体继续。返回值 Packets 长度恒等于片段数。
func (g *Gatherer) Gather(ctx context.Context, segments []segment.Segment, progress ProgressFunc) *GatherResult {
	result := &GatherResult{Packets: make([]model.EvidencePacket, len(segments))}
	if len(segments) == 0 {
		return result
	}

	// 片段少时串行即可，省去工作池开销
	if len(segments) <= 3 {
		for i, seg := range segments {
			g.extractOne(ctx, i, seg, result)
			if progress != nil {
				progress(i+1, len(segments))
			}
		}
		return result
	}

	var (
		wg   sync.WaitGroup
		done int
	)
	sem := semaphore.NewWeighted(int64(g.concurrency))
	for i, seg := range segments {
		if err := sem.Acquire(ctx, 1); err != nil {
			// ctx 取消：剩余片段全部记为空包
			for j := i; j < len(segments); j++ {
				result.mu.Lock()
				result.Packets[j] = model.EmptyPacket(segments[j].StartIdx, segments[j].EndIdx)
				result.Failed++
				result.mu.Unlock()
			}
			break
		}

		wg.Add(1)
		go func(idx int, seg segment.Segment) {
			defer wg.Done()
			defer sem.Release(1)

			g.extractOne(ctx, idx, seg, result)

			result.mu.Lock()
			done++
			n := done
			result.mu.Unlock()
			if progress != nil {
				progress(n, len(segments))
			}
		}(i, seg)
	}
	wg.Wait()

	return result
}

func (g *Gatherer) extractOne(ctx context.Context, idx int, seg segment.Segment, result *GatherResult) {
	packet, inTok, outTok, err := g.extractor.Extract(ctx, seg)

	result.mu.Lock()
	defer result.mu.Unlock()

	result.InputTokens += inTok
	result.OutputTokens += outTok
	result.Packets[idx] = packet
	if err != nil {
		result.Failed++
		if errors.Is(err, provider.ErrProvider) {
			result.ProviderErrs++
		}
		logger.Warnf("[Evidence] 片段 %d 提取失败, 使用空证据包: %s", idx, err)
	}
}
