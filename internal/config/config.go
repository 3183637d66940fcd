package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration decodes TOML strings such as "30s" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ServerConfig struct {
	Port    int    `toml:"port"`
	BaseURL string `toml:"base_url"`
}

type LLMConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	System      string  `toml:"system"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type PostgresConfig struct {
	URL string `toml:"url"`
}

type NatsConfig struct {
	URL     string `toml:"url"`
	Token   string `toml:"token"`
	Subject string `toml:"subject"`
}

type TranscriptConfig struct {
	Dir           string `toml:"dir"`
	QuestionLabel string `toml:"question_label"`
	AnswerLabel   string `toml:"answer_label"`
}

// ResolutionConfig maps alias spellings to the canonical name they resolve to,
// e.g. "mikey" = "mike".
type ResolutionConfig struct {
	Aliases map[string]string `toml:"aliases"`
}

type PromptConfig struct {
	Extraction string `toml:"extraction"`
	Analysis   string `toml:"analysis"`
}

type AnalysisConfig struct {
	MinQuestions int `toml:"min_questions"`
	MaxQuestions int `toml:"max_questions"`
}

type RenderConfig struct {
	URL string `toml:"url"` // external render service; empty means link renderer
}

type TimeoutConfig struct {
	Extraction Duration `toml:"extraction"`
	GraphWrite Duration `toml:"graph_write"`
	Relational Duration `toml:"relational"`
	Analysis   Duration `toml:"analysis"`
	Render     Duration `toml:"render"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text | json
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	LLM        LLMConfig        `toml:"llm"`
	Memgraph   MemgraphConfig   `toml:"memgraph"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Nats       NatsConfig       `toml:"nats"`
	Transcript TranscriptConfig `toml:"transcript"`
	Resolution ResolutionConfig `toml:"resolution"`
	Prompts    PromptConfig     `toml:"prompts"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Render     RenderConfig     `toml:"render"`
	Timeouts   TimeoutConfig    `toml:"timeouts"`
	Logging    LoggingConfig    `toml:"logging"`
}

// Default returns a configuration that runs fully in memory with the
// heuristic analysis capability.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8058, BaseURL: "http://localhost:8058"},
		Nats:   NatsConfig{Subject: "investigation.qa.analyzed"},
		Transcript: TranscriptConfig{
			QuestionLabel: "Investigator",
			AnswerLabel:   "Suspect",
		},
		Resolution: ResolutionConfig{Aliases: map[string]string{}},
		Analysis:   AnalysisConfig{MinQuestions: 3, MaxQuestions: 5},
		Timeouts: TimeoutConfig{
			Extraction: Duration{30 * time.Second},
			GraphWrite: Duration{10 * time.Second},
			Relational: Duration{5 * time.Second},
			Analysis:   Duration{45 * time.Second},
			Render:     Duration{10 * time.Second},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if cfg.Resolution.Aliases == nil {
		cfg.Resolution.Aliases = map[string]string{}
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv() {
	setStr(&c.LLM.Provider, "LLM_PROVIDER")
	setStr(&c.LLM.Model, "LLM_MODEL")
	setStr(&c.LLM.APIKey, "LLM_API_KEY")
	setStr(&c.LLM.BaseURL, "LLM_BASE_URL")
	setStr(&c.Memgraph.URI, "MEMGRAPH_URI")
	setStr(&c.Memgraph.User, "MEMGRAPH_USER")
	setStr(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setStr(&c.Postgres.URL, "DATABASE_URL")
	setStr(&c.Nats.URL, "NATS_URL")
	setStr(&c.Nats.Token, "NATS_TOKEN")
	setStr(&c.Transcript.Dir, "TRANSCRIPT_DIR")
	setStr(&c.Server.BaseURL, "APP_BASE_URL")
	setStr(&c.Render.URL, "RENDER_URL")
	setStr(&c.Logging.Level, "LOG_LEVEL")
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
}

func (c *Config) Validate() error {
	if c.Analysis.MaxQuestions < 1 || c.Analysis.MaxQuestions > 5 {
		return fmt.Errorf("analysis.max_questions must be within [1,5], got %d", c.Analysis.MaxQuestions)
	}
	if c.Analysis.MinQuestions < 1 || c.Analysis.MinQuestions > c.Analysis.MaxQuestions {
		return fmt.Errorf("analysis.min_questions must be within [1,%d], got %d", c.Analysis.MaxQuestions, c.Analysis.MinQuestions)
	}
	if c.Transcript.QuestionLabel == "" || c.Transcript.AnswerLabel == "" {
		return fmt.Errorf("transcript labels must not be empty")
	}
	if c.Transcript.QuestionLabel == c.Transcript.AnswerLabel {
		return fmt.Errorf("transcript labels must differ")
	}
	// sequence numbers come from the transcript; an in-memory transcript
	// restarts them at 1 and would collide with durable graph or mirror rows
	if c.Transcript.Dir == "" && (c.Memgraph.URI != "" || c.Postgres.URL != "") {
		return fmt.Errorf("transcript.dir is required when memgraph or postgres is configured")
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
