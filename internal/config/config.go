package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type OpenAI struct {
	BaseURL        string `yaml:"BaseURL"`        // 兼容 OpenAI API 的端点
	APIKey         string `yaml:"APIKey"`         // 为空时回退到 OPENAI_API_KEY 环境变量
	Model          string `yaml:"Model"`          // 证据提取/质量评审用的小模型
	SynthesisModel string `yaml:"SynthesisModel"` // 最终合成用的大模型
}

type Gemini struct {
	APIKey         string `yaml:"APIKey"` // 为空时回退到 GEMINI_API_KEY 环境变量
	Model          string `yaml:"Model"`
	SynthesisModel string `yaml:"SynthesisModel"`
}

// Pipeline 证据流水线参数，阈值和上限均为配置而非硬编码
type Pipeline struct {
	TargetTokens        int     `yaml:"TargetTokens"`        // 单片段目标 token 预算
	OverlapTokens       int     `yaml:"OverlapTokens"`       // 片段重叠预算
	Concurrency         int     `yaml:"Concurrency"`         // 提取工作池并发上限
	SimilarityThreshold float64 `yaml:"SimilarityThreshold"` // 近重复判定阈值
	AwardCount          int     `yaml:"AwardCount"`          // 合成阶段要求的奖项数量
	MaxPerRecipient     int     `yaml:"MaxPerRecipient"`     // 单人奖项上限
	QuipMaxWords        int     `yaml:"QuipMaxWords"`        // 妙语词数上限
	SampleCount         int     `yaml:"SampleCount"`         // 合成提示词附带的示例消息数
	MaxQuotes           int     `yaml:"MaxQuotes"`
	MaxInsideJokes      int     `yaml:"MaxInsideJokes"`
	MaxDynamics         int     `yaml:"MaxDynamics"`
	MaxFunnyMoments     int     `yaml:"MaxFunnyMoments"`
	MaxNotesPerPerson   int     `yaml:"MaxNotesPerPerson"`
	MaxAwardIdeas       int     `yaml:"MaxAwardIdeas"`
	MaxSnippets         int     `yaml:"MaxSnippets"`
	MaxContradictions   int     `yaml:"MaxContradictions"`
	MaxRoasts           int     `yaml:"MaxRoasts"`
}

type Session struct {
	Enable bool   `yaml:"Enable"`
	Dir    string `yaml:"Dir"`
}

type Archive struct {
	Enable bool   `yaml:"Enable"`
	Path   string `yaml:"Path"`
}

type Watch struct {
	Enable bool   `yaml:"Enable"`
	Cron   string `yaml:"Cron"` // cron 表达式，如 "0 3 * * *"
	Dir    string `yaml:"Dir"`  // 监视的导出文件目录
}

type Config struct {
	Provider   string     `yaml:"Provider"` // "openai" / "gemini"
	Sock5Proxy Sock5Proxy `yaml:"Sock5Proxy"`
	OpenAI     OpenAI     `yaml:"OpenAI"`
	Gemini     Gemini     `yaml:"Gemini"`
	Pipeline   Pipeline   `yaml:"Pipeline"`
	Session    Session    `yaml:"Session"`
	Archive    Archive    `yaml:"Archive"`
	Watch      Watch      `yaml:"Watch"`
	LogDir     string     `yaml:"LogDir"`
}

func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var c Config
	if err = yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default 返回带默认值的配置（无需配置文件即可离线运行）
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.SynthesisModel == "" {
		c.OpenAI.SynthesisModel = "gpt-4o"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Gemini.SynthesisModel == "" {
		c.Gemini.SynthesisModel = "gemini-2.0-pro"
	}

	p := &c.Pipeline
	if p.TargetTokens <= 0 {
		p.TargetTokens = 8000
	}
	if p.OverlapTokens < 0 {
		p.OverlapTokens = 0
	} else if p.OverlapTokens == 0 {
		p.OverlapTokens = 200
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 5
	}
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = 0.8
	}
	if p.AwardCount <= 0 {
		p.AwardCount = 10
	}
	if p.MaxPerRecipient <= 0 {
		p.MaxPerRecipient = 6
	}
	if p.QuipMaxWords <= 0 {
		p.QuipMaxWords = 15
	}
	if p.SampleCount <= 0 {
		p.SampleCount = 50
	}
	if p.MaxQuotes <= 0 {
		p.MaxQuotes = 15
	}
	if p.MaxInsideJokes <= 0 {
		p.MaxInsideJokes = 10
	}
	if p.MaxDynamics <= 0 {
		p.MaxDynamics = 10
	}
	if p.MaxFunnyMoments <= 0 {
		p.MaxFunnyMoments = 10
	}
	if p.MaxNotesPerPerson <= 0 {
		p.MaxNotesPerPerson = 5
	}
	if p.MaxAwardIdeas <= 0 {
		p.MaxAwardIdeas = 15
	}
	if p.MaxSnippets <= 0 {
		p.MaxSnippets = 8
	}
	if p.MaxContradictions <= 0 {
		p.MaxContradictions = 8
	}
	if p.MaxRoasts <= 0 {
		p.MaxRoasts = 8
	}

	if c.Session.Dir == "" {
		c.Session.Dir = "logs/sessions"
	}
	if c.Archive.Path == "" {
		c.Archive.Path = "data/archive.db"
	}
}

// Validate 验证配置的有效性；API Key 缺失不是错误（会进入离线模式）
func (c *Config) Validate() error {
	if c.Provider != ProviderOpenAI && c.Provider != ProviderGemini {
		return fmt.Errorf("Provider 必须是 '%s' 或 '%s'", ProviderOpenAI, ProviderGemini)
	}
	if c.Pipeline.SimilarityThreshold <= 0 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("Pipeline.SimilarityThreshold 必须在 (0, 1] 区间内")
	}
	if c.Pipeline.OverlapTokens >= c.Pipeline.TargetTokens {
		return fmt.Errorf("Pipeline.OverlapTokens 必须小于 TargetTokens")
	}
	if c.Pipeline.MaxPerRecipient > c.Pipeline.AwardCount {
		return fmt.Errorf("Pipeline.MaxPerRecipient 不能大于 AwardCount")
	}
	if c.Watch.Enable {
		if c.Watch.Cron == "" {
			return fmt.Errorf("Watch.Cron 不能为空（当 Watch.Enable 为 true 时）")
		}
		if c.Watch.Dir == "" {
			return fmt.Errorf("Watch.Dir 不能为空（当 Watch.Enable 为 true 时）")
		}
	}
	return nil
}

// OpenAIKey 返回生效的 OpenAI API Key，优先配置文件，其次环境变量
func (c *Config) OpenAIKey() string {
	if c.OpenAI.APIKey != "" {
		return c.OpenAI.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// GeminiKey 返回生效的 Gemini API Key，优先配置文件，其次环境变量
func (c *Config) GeminiKey() string {
	if c.Gemini.APIKey != "" {
		return c.Gemini.APIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}
