package model

// ModelOffline 离线模式的后端标识，表示未发起任何外部调用
const ModelOffline = "offline"

// Award 最终产出的单个奖项，必须指向一位已知参与者
type Award struct {
	Title     string `json:"title"`
	Recipient string `json:"recipient"`
	Evidence  string `json:"evidence"`
	Quip      string `json:"quip"`
}

// DetectedPattern 启发式检测到的行为模式
type DetectedPattern struct {
	Kind        string  `json:"kind"`
	Person      string  `json:"person"`
	Frequency   int     `json:"frequency"`
	Strength    float64 `json:"strength"` // 0~1
	Description string  `json:"description"`
}

// PipelineResult 流水线的终态结果，任何失败组合下都会被构造出来
type PipelineResult struct {
	Awards       []Award           `json:"awards"`
	PatternsUsed []DetectedPattern `json:"patterns_used"`
	Evidence     *EvidenceSet      `json:"evidence,omitempty"`
	ModelUsed    string            `json:"model_used"`
	InputTokens  int               `json:"input_tokens"`
	OutputTokens int               `json:"output_tokens"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"` // 降级说明，非致命
}
