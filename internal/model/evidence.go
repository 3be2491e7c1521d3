package model

// Quote 值得记录的原话
type Quote struct {
	Person    string `json:"person"`
	Quote     string `json:"quote"`
	Punchline string `json:"punchline,omitempty"`
}

// InsideJoke 反复出现的梗/典故
type InsideJoke struct {
	Reference string `json:"reference"`
	Punchline string `json:"punchline,omitempty"`
}

// FunnyMoment 有趣的瞬间
type FunnyMoment struct {
	Description string `json:"description"`
}

// AwardIdea 候选奖项点子
type AwardIdea struct {
	Title     string `json:"title"`
	Recipient string `json:"recipient"`
	Evidence  string `json:"evidence,omitempty"`
}

// SnippetLine 对话片段中的一条消息
type SnippetLine struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Snippet 多条消息组成的短对话片段，笑点在往返本身
type Snippet struct {
	Context   string        `json:"context"`
	Exchange  []SnippetLine `json:"exchange"`
	Punchline string        `json:"punchline,omitempty"`
}

// Contradiction “嘴上说X，实际做Y”的矛盾记录
type Contradiction struct {
	Person    string `json:"person"`
	Says      string `json:"says"`
	Does      string `json:"does"`
	Punchline string `json:"punchline,omitempty"`
}

// Roast 善意的吐槽素材
type Roast struct {
	Person   string `json:"person"`
	Roast    string `json:"roast"`
	Evidence string `json:"evidence,omitempty"`
}

// EvidencePacket 单个片段的结构化观察结果，每个片段恰好产出一份（失败时为空包）
type EvidencePacket struct {
	SegmentStart   int                 `json:"segment_start"`
	SegmentEnd     int                 `json:"segment_end"`
	NotableQuotes  []Quote             `json:"notable_quotes"`
	InsideJokes    []InsideJoke        `json:"inside_jokes"`
	Dynamics       []string            `json:"dynamics"`
	FunnyMoments   []FunnyMoment       `json:"funny_moments"`
	StyleNotes     map[string][]string `json:"style_notes"`
	AwardIdeas     []AwardIdea         `json:"award_ideas"`
	Snippets       []Snippet           `json:"conversation_snippets"`
	Contradictions []Contradiction     `json:"contradictions"`
	Roasts         []Roast             `json:"roasts"`
}

// EmptyPacket 创建空的证据包，保持片段下标对应关系
func EmptyPacket(segStart, segEnd int) EvidencePacket {
	return EvidencePacket{
		SegmentStart: segStart,
		SegmentEnd:   segEnd,
		StyleNotes:   map[string][]string{},
	}
}

// ItemCount 包内所有类别的条目总数
func (p *EvidencePacket) ItemCount() int {
	n := len(p.NotableQuotes) + len(p.InsideJokes) + len(p.Dynamics) +
		len(p.FunnyMoments) + len(p.AwardIdeas) + len(p.Snippets) +
		len(p.Contradictions) + len(p.Roasts)
	for _, notes := range p.StyleNotes {
		n += len(notes)
	}
	return n
}

// EvidenceSet 跨片段合并后的证据集，聚合后不再修改（质量过滤产出同形状的新集合）
type EvidenceSet struct {
	NotableQuotes  []Quote             `json:"notable_quotes"`
	InsideJokes    []InsideJoke        `json:"inside_jokes"`
	Dynamics       []string            `json:"dynamics"`
	FunnyMoments   []FunnyMoment       `json:"funny_moments"`
	StyleNotes     map[string][]string `json:"style_notes"`
	AwardIdeas     []AwardIdea         `json:"award_ideas"`
	Snippets       []Snippet           `json:"conversation_snippets"`
	Contradictions []Contradiction     `json:"contradictions"`
	Roasts         []Roast             `json:"roasts"`
}

// ItemCount 集合内除风格笔记外的条目总数（风格笔记不参与质量过滤）
func (e *EvidenceSet) ItemCount() int {
	return len(e.NotableQuotes) + len(e.InsideJokes) + len(e.Dynamics) +
		len(e.FunnyMoments) + len(e.AwardIdeas) + len(e.Snippets) +
		len(e.Contradictions) + len(e.Roasts)
}
