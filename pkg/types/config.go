// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// Configuration validation errors.
var (
	ErrNoModel        = errors.New("inference model is required")
	ErrBadWorkers     = errors.New("worker pool width must be positive")
	ErrBadAttempts    = errors.New("inference attempts must be positive")
	ErrBadWindow      = errors.New("text windows must be positive")
	ErrBadRetention   = errors.New("retention days must be positive")
	ErrBadBudget      = errors.New("output budgets must be positive")
	ErrBadTemperature = errors.New("temperature must be in [0,1]")
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Budgets caps the response size of each inference call site.
type Budgets struct {
	// Probe is the yes/no topic check.
	Probe int `json:"probe" yaml:"probe"`

	// Affiliation is the batched [YES]/[NO] candidate check.
	Affiliation int `json:"affiliation" yaml:"affiliation"`

	// Summary is the one-sentence summary.
	Summary int `json:"summary" yaml:"summary"`

	// Ranking is the whole-batch score listing.
	Ranking int `json:"ranking" yaml:"ranking"`
}

// InferenceConfig holds settings for the external reasoning service.
type InferenceConfig struct {
	// Model is the model identifier sent with every request.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the service endpoint when set.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Temperature is kept low but non-zero (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxAttempts bounds tries per call (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Timeout bounds a single attempt (default 20s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Backoff is the fixed pause between attempts (default 1s).
	Backoff time.Duration `json:"backoff" yaml:"backoff"`
}

// PipelineConfig holds the knobs of the three-stage pipeline.
type PipelineConfig struct {
	// Workers is the pool width for Stage 1 and Stage 2 (default 50).
	Workers int `json:"workers" yaml:"workers"`

	// SummaryWorkers is the pool width for Stage 3 summaries (default 5).
	SummaryWorkers int `json:"summary_workers" yaml:"summary_workers"`

	// HeadWindow is the body prefix, in characters, where a keyword is
	// trusted as an author affiliation (default 800).
	HeadWindow int `json:"head_window" yaml:"head_window"`

	// ContextWindow is the body prefix sent for affiliation checks (default 5000).
	ContextWindow int `json:"context_window" yaml:"context_window"`

	// PromptAbstractChars truncates abstracts in topic prompts (default 1500).
	PromptAbstractChars int `json:"prompt_abstract_chars" yaml:"prompt_abstract_chars"`

	// FetchAbstracts enables scraping the abstract page before summarizing.
	FetchAbstracts bool `json:"fetch_abstracts" yaml:"fetch_abstracts"`

	// AbstractTimeout bounds one abstract page fetch (default 15s).
	AbstractTimeout time.Duration `json:"abstract_timeout" yaml:"abstract_timeout"`

	Budgets Budgets `json:"budgets" yaml:"budgets"`
}

// RulesConfig names the rule table files.
type RulesConfig struct {
	// LabsFile is the academic lab CSV.
	LabsFile string `json:"labs_file" yaml:"labs_file"`

	// CompaniesFile is the company CSV.
	CompaniesFile string `json:"companies_file" yaml:"companies_file"`

	// YAMLFile is an optional keyword table in YAML.
	YAMLFile string `json:"yaml_file,omitempty" yaml:"yaml_file,omitempty"`
}

// AcquisitionConfig holds settings for the archive harvest.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// Categories lists the subject classes to keep (e.g. "cs.RO").
	Categories []string `json:"categories" yaml:"categories"`

	// MaxAgeDays drops papers older than this many days (default 10).
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`

	// FetchDelay is the pause between full-text fetches (default 2s).
	FetchDelay time.Duration `json:"fetch_delay" yaml:"fetch_delay"`

	// MaxPapers caps the harvest, 0 for no cap.
	MaxPapers int `json:"max_papers" yaml:"max_papers"`

	// OutputFile receives the raw paper JSON.
	OutputFile string `json:"output_file" yaml:"output_file"`
}

// HistoryConfig holds settings for the retention store.
type HistoryConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `json:"db_path" yaml:"db_path"`

	// RetentionDays prunes records older than this (default 30).
	RetentionDays int `json:"retention_days" yaml:"retention_days"`

	// DailyFile is the digest written by a pipeline run.
	DailyFile string `json:"daily_file" yaml:"daily_file"`

	// ExportFile receives the merged history as JSON.
	ExportFile string `json:"export_file" yaml:"export_file"`
}

// Config groups every setting of a paper-radar run.
type Config struct {
	Inference   InferenceConfig   `json:"inference" yaml:"inference"`
	Pipeline    PipelineConfig    `json:"pipeline" yaml:"pipeline"`
	Rules       RulesConfig       `json:"rules" yaml:"rules"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition"`
	History     HistoryConfig     `json:"history" yaml:"history"`
	LogLevel    string            `json:"log_level" yaml:"log_level"`
}

// DefaultBudgets returns the per-site output budgets.
func DefaultBudgets() Budgets {
	return Budgets{Probe: 5, Affiliation: 300, Summary: 60, Ranking: 500}
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		Inference: InferenceConfig{
			Model:       "claude-3-5-haiku-latest",
			Temperature: 0.3,
			MaxAttempts: 3,
			Timeout:     20 * time.Second,
			Backoff:     time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:             50,
			SummaryWorkers:      5,
			HeadWindow:          800,
			ContextWindow:       5000,
			PromptAbstractChars: 1500,
			FetchAbstracts:      true,
			AbstractTimeout:     15 * time.Second,
			Budgets:             DefaultBudgets(),
		},
		Rules: RulesConfig{
			LabsFile:      "rules/labs.csv",
			CompaniesFile: "rules/companies.csv",
		},
		Acquisition: AcquisitionConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: "paper-radar/0.1",
			},
			Categories: []string{"cs.CV", "cs.RO", "cs.AI"},
			MaxAgeDays: 10,
			FetchDelay: 2 * time.Second,
			OutputFile: "data/raw_papers.json",
		},
		History: HistoryConfig{
			DBPath:        "data/history.db",
			RetentionDays: 30,
			DailyFile:     "data/daily_papers.json",
			ExportFile:    "data/history_papers.json",
		},
		LogLevel: "info",
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Inference.Model == "" {
		return ErrNoModel
	}
	if c.Inference.MaxAttempts <= 0 {
		return ErrBadAttempts
	}
	if c.Inference.Temperature < 0 || c.Inference.Temperature > 1 {
		return fmt.Errorf("%w: got %v", ErrBadTemperature, c.Inference.Temperature)
	}
	if c.Pipeline.Workers <= 0 || c.Pipeline.SummaryWorkers <= 0 {
		return fmt.Errorf("%w: workers=%d summary_workers=%d", ErrBadWorkers, c.Pipeline.Workers, c.Pipeline.SummaryWorkers)
	}
	if c.Pipeline.HeadWindow <= 0 || c.Pipeline.ContextWindow <= 0 || c.Pipeline.PromptAbstractChars <= 0 {
		return ErrBadWindow
	}
	b := c.Pipeline.Budgets
	if b.Probe <= 0 || b.Affiliation <= 0 || b.Summary <= 0 || b.Ranking <= 0 {
		return ErrBadBudget
	}
	if c.History.RetentionDays <= 0 {
		return ErrBadRetention
	}
	return nil
}
