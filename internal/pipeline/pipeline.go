package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/fachebot/chat-unwrapped/internal/config"
	"github.com/fachebot/chat-unwrapped/internal/evidence"
	"github.com/fachebot/chat-unwrapped/internal/logger"
	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/patterns"
	"github.com/fachebot/chat-unwrapped/internal/provider"
	"github.com/fachebot/chat-unwrapped/internal/segment"
	"github.com/fachebot/chat-unwrapped/internal/session"
	"github.com/fachebot/chat-unwrapped/internal/synthesis"
)

// 流水线阶段标识，用于进度回调
const (
	StagePatterns     = "patterns"
	StageSegmenting   = "segmenting"
	StageExtracting   = "extracting"
	StageSynthesizing = "synthesizing"
	StageComplete     = "complete"
)

// ProgressEvent 阶段进度事件
type ProgressEvent struct {
	Stage   string
	Message string
	Current int
	Total   int
}

// ProgressFunc 进度回调，可为 nil
type ProgressFunc func(ProgressEvent)

// Options 单次运行的选项
type Options struct {
	Offline  bool            // 强制离线（跳过所有外部调用）
	Progress ProgressFunc    // 进度回调
	Session  *session.Logger // 调试日志，可为 nil
}

// Pipeline 证据流水线编排器：切分 -> 提取 -> 聚合 -> 过滤 -> 合成，
// 任何一级失败都降级到下一条路径，最终总能产出结果。
type Pipeline struct {
	cfg               *config.Config
	evidenceProvider  provider.Provider // nil 表示无可用后端
	synthesisProvider provider.Provider
}

// New 创建流水线。两个 provider 都可为 nil（离线模式）。
func New(cfg *config.Config, evidenceProvider, synthesisProvider provider.Provider) *Pipeline {
	return &Pipeline{
		cfg:               cfg,
		evidenceProvider:  evidenceProvider,
		synthesisProvider: synthesisProvider,
	}
}

// Generate 执行完整流水线。该方法从不返回错误：失败沿降级链回退，
// 最坏情况下退化为纯启发式的模式奖项。
//
// 降级链：
//  1. 无后端或显式离线 -> 模式奖项, 后端标识为 offline
//  2. 证据提取全部失败且存在后端错误 -> 模式奖项
//  3. 证据提取全部失败（非后端错误）-> 无证据合成
//  4. 合成失败（后端错误）-> 模式奖项
//  5. 合成失败（其他错误）-> 无证据重试 -> 模式奖项
//
// offline 哨兵只出现在完全未发起外部调用的路径；发起过调用的降级
// 结果保留真实后端标识，靠 Error 字段区分降级。
func (p *Pipeline) Generate(ctx context.Context, conv *model.Conversation,
	stats *model.Statistics, opts Options) *model.PipelineResult {

	emit := func(e ProgressEvent) {
		if opts.Progress != nil {
			opts.Progress(e)
		}
	}

	emit(ProgressEvent{Stage: StagePatterns, Message: "检测行为模式"})
	detected := patterns.Detect(conv)
	logger.Infof("[Pipeline] 检测到 %d 个行为模式", len(detected))

	if opts.Offline || p.evidenceProvider == nil || p.synthesisProvider == nil {
		logger.Infof("[Pipeline] 离线模式, 跳过所有外部调用")
		result := p.offlineResult(stats, detected, "")
		opts.Session.SaveJSON("result.json", result)
		emit(ProgressEvent{Stage: StageComplete})
		return result
	}

	// 切分与证据提取
	emit(ProgressEvent{Stage: StageSegmenting, Message: "切分会话"})
	segments := segment.Split(conv, p.cfg.Pipeline.TargetTokens, p.cfg.Pipeline.OverlapTokens)
	logger.Infof("[Pipeline] 会话切分为 %d 个片段", len(segments))

	gatherer := evidence.NewGatherer(p.evidenceProvider, p.cfg.Pipeline.Concurrency)
	gathered := gatherer.Gather(ctx, segments, func(done, total int) {
		emit(ProgressEvent{Stage: StageExtracting, Current: done, Total: total,
			Message: fmt.Sprintf("提取证据 %d/%d", done, total)})
	})
	for i, packet := range gathered.Packets {
		opts.Session.SaveSegment(i, packet)
	}

	inTokens := gathered.InputTokens
	outTokens := gathered.OutputTokens

	var set *model.EvidenceSet
	switch {
	case len(segments) > 0 && gathered.Failed == len(segments):
		if gathered.ProviderErrs > 0 {
			// 后端整体不可用，合成也不必再试
			logger.Errorf("[Pipeline] 全部 %d 个片段提取失败且存在后端错误, 降级为模式奖项", len(segments))
			result := p.offlineResult(stats, detected, "证据提取阶段后端不可用")
			result.ModelUsed = p.evidenceProvider.Name()
			result.InputTokens = inTokens
			result.OutputTokens = outTokens
			opts.Session.SaveJSON("result.json", result)
			emit(ProgressEvent{Stage: StageComplete})
			return result
		}
		logger.Warnf("[Pipeline] 全部片段提取失败(非后端错误), 尝试无证据合成")
		set = nil
	default:
		opts.Session.SaveJSON("pre_aggregation.json", gathered.Packets)
		aggregator := evidence.NewAggregator(p.cfg.Pipeline)
		set = aggregator.Aggregate(gathered.Packets)
		opts.Session.SaveJSON("post_aggregation.json", set)
		logger.Infof("[Pipeline] 聚合后证据条目数: %d", set.ItemCount())

		filter := evidence.NewFilter(p.evidenceProvider)
		var fin, fout int
		set, fin, fout = filter.Apply(ctx, set)
		inTokens += fin
		outTokens += fout
		opts.Session.SaveJSON("post_quality_filter.json", set)
		logger.Infof("[Pipeline] 质量过滤后证据条目数: %d", set.ItemCount())
	}

	// 合成
	emit(ProgressEvent{Stage: StageSynthesizing, Message: "合成奖项"})
	samples := synthesis.SelectSamples(conv.UserMessages(), p.cfg.Pipeline.SampleCount)
	generator := synthesis.NewGenerator(p.synthesisProvider, synthesis.Options{
		AwardCount:      p.cfg.Pipeline.AwardCount,
		MaxPerRecipient: p.cfg.Pipeline.MaxPerRecipient,
		QuipMaxWords:    p.cfg.Pipeline.QuipMaxWords,
		SampleCount:     p.cfg.Pipeline.SampleCount,
		Debug:           opts.Session.SaveText,
	})

	synth, err := generator.Generate(ctx, stats, detected, set, samples)
	if synth != nil {
		inTokens += synth.InputTokens
		outTokens += synth.OutputTokens
	}
	if err != nil && set != nil && !errors.Is(err, provider.ErrProvider) {
		// 非后端错误时证据本身可能是诱因（过大、格式怪异），去掉证据再试一次
		logger.Warnf("[Pipeline] 合成失败, 尝试无证据合成: %s", err)
		synth, err = generator.Generate(ctx, stats, detected, nil, samples)
		if synth != nil {
			inTokens += synth.InputTokens
			outTokens += synth.OutputTokens
		}
	}
	if err != nil {
		logger.Errorf("[Pipeline] 合成失败, 降级为模式奖项: %s", err)
		result := p.offlineResult(stats, detected, fmt.Sprintf("合成阶段失败: %s", err))
		result.ModelUsed = p.synthesisProvider.Name()
		result.InputTokens = inTokens
		result.OutputTokens = outTokens
		opts.Session.SaveJSON("result.json", result)
		emit(ProgressEvent{Stage: StageComplete})
		return result
	}

	degraded := ""
	if set == nil {
		degraded = "证据提取失败, 奖项仅基于统计与行为模式"
	} else if gathered.Failed > 0 {
		degraded = fmt.Sprintf("%d/%d 个片段的证据提取失败", gathered.Failed, len(segments))
	}

	result := &model.PipelineResult{
		Awards:       synth.Awards,
		PatternsUsed: detected,
		Evidence:     set,
		ModelUsed:    synth.Backend,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		Success:      true,
		Error:        degraded,
	}
	opts.Session.SaveJSON("result.json", result)
	emit(ProgressEvent{Stage: StageComplete})
	return result
}

// offlineResult 纯本地产出：模式奖项 + 模式列表，默认 offline 哨兵标识
func (p *Pipeline) offlineResult(stats *model.Statistics,
	detected []model.DetectedPattern, degraded string) *model.PipelineResult {
	return &model.PipelineResult{
		Awards:       OfflineAwards(stats, detected),
		PatternsUsed: detected,
		ModelUsed:    model.ModelOffline,
		Success:      true,
		Error:        degraded,
	}
}
