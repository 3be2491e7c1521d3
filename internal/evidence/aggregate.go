package evidence

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/fachebot/chat-unwrapped/internal/config"
	"github.com/fachebot/chat-unwrapped/internal/model"
)

// levParams 相似度计算参数（包级共享，无状态）
var levParams = levenshtein.NewParams()

// Aggregator 将各片段的证据包合并为单一证据集：
// 时间均衡采样 -> 近重复剔除 -> 按类别上限截断
type Aggregator struct {
	threshold float64
	cfg       config.Pipeline
}

func NewAggregator(cfg config.Pipeline) *Aggregator {
	return &Aggregator{threshold: cfg.SimilarityThreshold, cfg: cfg}
}

// similar 判断两段文本是否近重复（归一化编辑相似度）
func (a *Aggregator) similar(x, y string) bool {
	x = strings.ToLower(strings.TrimSpace(x))
	y = strings.ToLower(strings.TrimSpace(y))
	if x == y {
		return true
	}
	return levenshtein.Similarity(x, y, levParams) >= a.threshold
}

// dedupBy 顺序去重：与已保留条目近重复的后续条目被丢弃（保留先出现者）
func dedupBy[T any](a *Aggregator, items []T, key func(T) string) []T {
	if len(items) <= 1 {
		return items
	}
	kept := make([]T, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		k := key(item)
		dup := false
		for _, seen := range keys {
			if a.similar(k, seen) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, item)
			keys = append(keys, k)
		}
	}
	return kept
}

// sampleBuckets 跨片段时间均衡采样。总量不超上限时全收；超限时给每个
// 非空片段平均配额，余数偏向靠后（较新）片段，片段内优先取前面的条目，
// 未用完的配额轮转回填给还有剩余的片段。
func sampleBuckets[T any](buckets [][]T, max int) []T {
	total := 0
	nonEmpty := 0
	for _, b := range buckets {
		total += len(b)
		if len(b) > 0 {
			nonEmpty++
		}
	}
	if total <= max {
		out := make([]T, 0, total)
		for _, b := range buckets {
			out = append(out, b...)
		}
		return out
	}
	if nonEmpty == 0 || max <= 0 {
		return nil
	}

	quota := make([]int, len(buckets))
	base := max / nonEmpty
	extra := max % nonEmpty
	// 余数从最后的非空片段开始分配
	for i := len(buckets) - 1; i >= 0; i-- {
		if len(buckets[i]) == 0 {
			continue
		}
		quota[i] = base
		if extra > 0 {
			quota[i]++
			extra--
		}
	}

	taken := make([]int, len(buckets))
	out := make([]T, 0, max)
	for i, b := range buckets {
		n := quota[i]
		if n > len(b) {
			n = len(b)
		}
		out = append(out, b[:n]...)
		taken[i] = n
	}

	// 轮转回填：部分片段条目不足时把配额让给其他片段
	for len(out) < max {
		progressed := false
		for i, b := range buckets {
			if len(out) >= max {
				break
			}
			if taken[i] < len(b) {
				out = append(out, b[taken[i]])
				taken[i]++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

// rankByFrequency 按近重复聚类的独立观察次数降序排序（稳定，次数相同保持原序），
// 返回每个聚类的代表条目（先出现者）
func rankByFrequency[T any](a *Aggregator, items []T, key func(T) string) []T {
	if len(items) <= 1 {
		return items
	}
	type cluster struct {
		rep   T
		count int
		order int
	}
	var clusters []*cluster
	for _, item := range items {
		k := key(item)
		matched := false
		for _, c := range clusters {
			if a.similar(k, key(c.rep)) {
				c.count++
				matched = true
				break
			}
		}
		if !matched {
			clusters = append(clusters, &cluster{rep: item, count: 1, order: len(clusters)})
		}
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].count != clusters[j].count {
			return clusters[i].count > clusters[j].count
		}
		return clusters[i].order < clusters[j].order
	})
	out := make([]T, len(clusters))
	for i, c := range clusters {
		out[i] = c.rep
	}
	return out
}

func capSlice[T any](items []T, max int) []T {
	if len(items) > max {
		return items[:max]
	}
	return items
}

// Aggregate 合并所有证据包。空输入返回空集合（非 nil）。
func (a *Aggregator) Aggregate(packets []model.EvidencePacket) *model.EvidenceSet {
	set := &model.EvidenceSet{StyleNotes: map[string][]string{}}

	quotes := make([][]model.Quote, len(packets))
	jokes := make([][]model.InsideJoke, len(packets))
	dynamics := make([][]string, len(packets))
	moments := make([][]model.FunnyMoment, len(packets))
	ideas := make([][]model.AwardIdea, len(packets))
	snippets := make([][]model.Snippet, len(packets))
	contras := make([][]model.Contradiction, len(packets))
	roasts := make([][]model.Roast, len(packets))
	for i, p := range packets {
		quotes[i] = p.NotableQuotes
		jokes[i] = p.InsideJokes
		dynamics[i] = p.Dynamics
		moments[i] = p.FunnyMoments
		ideas[i] = p.AwardIdeas
		snippets[i] = p.Snippets
		contras[i] = p.Contradictions
		roasts[i] = p.Roasts
	}

	// 采样放在去重前：先保证时间均衡，再在样本内剔除近重复。
	// 采样上限取类别上限的 2 倍，给去重留余量。
	set.NotableQuotes = capSlice(dedupBy(a,
		sampleBuckets(quotes, a.cfg.MaxQuotes*2),
		func(q model.Quote) string { return q.Quote }), a.cfg.MaxQuotes)

	// 梗和奖项点子按独立观察次数排序：被多个片段重复观察到的更可信
	set.InsideJokes = capSlice(rankByFrequency(a,
		sampleBuckets(jokes, a.cfg.MaxInsideJokes*3),
		func(j model.InsideJoke) string { return j.Reference }), a.cfg.MaxInsideJokes)

	set.Dynamics = capSlice(dedupBy(a,
		sampleBuckets(dynamics, a.cfg.MaxDynamics*2),
		func(s string) string { return s }), a.cfg.MaxDynamics)

	set.FunnyMoments = capSlice(dedupBy(a,
		sampleBuckets(moments, a.cfg.MaxFunnyMoments*2),
		func(f model.FunnyMoment) string { return f.Description }), a.cfg.MaxFunnyMoments)

	set.AwardIdeas = capSlice(rankByFrequency(a,
		sampleBuckets(ideas, a.cfg.MaxAwardIdeas*3),
		func(i model.AwardIdea) string { return i.Title + " " + i.Recipient }), a.cfg.MaxAwardIdeas)

	set.Snippets = capSlice(dedupBy(a,
		sampleBuckets(snippets, a.cfg.MaxSnippets*2),
		func(s model.Snippet) string { return s.Context }), a.cfg.MaxSnippets)

	set.Contradictions = capSlice(dedupBy(a,
		sampleBuckets(contras, a.cfg.MaxContradictions*2),
		func(c model.Contradiction) string { return c.Person + " " + c.Says }), a.cfg.MaxContradictions)

	set.Roasts = capSlice(dedupBy(a,
		sampleBuckets(roasts, a.cfg.MaxRoasts*2),
		func(r model.Roast) string { return r.Person + " " + r.Roast }), a.cfg.MaxRoasts)

	// 风格笔记按人合并去重，不参与时间采样
	for _, p := range packets {
		for person, notes := range p.StyleNotes {
			set.StyleNotes[person] = append(set.StyleNotes[person], notes...)
		}
	}
	for person, notes := range set.StyleNotes {
		deduped := dedupBy(a, notes, func(s string) string { return s })
		set.StyleNotes[person] = capSlice(deduped, a.cfg.MaxNotesPerPerson)
	}

	return set
}
