// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-radar/internal/secrets"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// setDefaults registers every configuration key with its default so
// config files and PAPER_RADAR_* variables can override any of them.
func setDefaults() {
	d := types.DefaultConfig()

	viper.SetDefault("log_level", d.LogLevel)

	viper.SetDefault("inference.model", d.Inference.Model)
	viper.SetDefault("inference.base_url", d.Inference.BaseURL)
	viper.SetDefault("inference.temperature", d.Inference.Temperature)
	viper.SetDefault("inference.max_attempts", d.Inference.MaxAttempts)
	viper.SetDefault("inference.timeout", d.Inference.Timeout)
	viper.SetDefault("inference.backoff", d.Inference.Backoff)

	viper.SetDefault("pipeline.workers", d.Pipeline.Workers)
	viper.SetDefault("pipeline.summary_workers", d.Pipeline.SummaryWorkers)
	viper.SetDefault("pipeline.head_window", d.Pipeline.HeadWindow)
	viper.SetDefault("pipeline.context_window", d.Pipeline.ContextWindow)
	viper.SetDefault("pipeline.prompt_abstract_chars", d.Pipeline.PromptAbstractChars)
	viper.SetDefault("pipeline.fetch_abstracts", d.Pipeline.FetchAbstracts)
	viper.SetDefault("pipeline.abstract_timeout", d.Pipeline.AbstractTimeout)
	viper.SetDefault("pipeline.budgets.probe", d.Pipeline.Budgets.Probe)
	viper.SetDefault("pipeline.budgets.affiliation", d.Pipeline.Budgets.Affiliation)
	viper.SetDefault("pipeline.budgets.summary", d.Pipeline.Budgets.Summary)
	viper.SetDefault("pipeline.budgets.ranking", d.Pipeline.Budgets.Ranking)

	viper.SetDefault("rules.labs_file", d.Rules.LabsFile)
	viper.SetDefault("rules.companies_file", d.Rules.CompaniesFile)
	viper.SetDefault("rules.yaml_file", d.Rules.YAMLFile)

	viper.SetDefault("acquisition.timeout", d.Acquisition.Timeout)
	viper.SetDefault("acquisition.user_agent", d.Acquisition.UserAgent)
	viper.SetDefault("acquisition.categories", d.Acquisition.Categories)
	viper.SetDefault("acquisition.max_age_days", d.Acquisition.MaxAgeDays)
	viper.SetDefault("acquisition.fetch_delay", d.Acquisition.FetchDelay)
	viper.SetDefault("acquisition.max_papers", d.Acquisition.MaxPapers)
	viper.SetDefault("acquisition.output_file", d.Acquisition.OutputFile)

	viper.SetDefault("history.db_path", d.History.DBPath)
	viper.SetDefault("history.retention_days", d.History.RetentionDays)
	viper.SetDefault("history.daily_file", d.History.DailyFile)
	viper.SetDefault("history.export_file", d.History.ExportFile)
}

// loadConfig reads the effective configuration. The API key comes from the
// secrets directory or ANTHROPIC_API_KEY.
func loadConfig() types.Config {
	return types.Config{
		LogLevel: viper.GetString("log_level"),
		Inference: types.InferenceConfig{
			Model:       viper.GetString("inference.model"),
			APIKey:      loadedSecrets.Get(secrets.AnthropicKey),
			BaseURL:     viper.GetString("inference.base_url"),
			Temperature: viper.GetFloat64("inference.temperature"),
			MaxAttempts: viper.GetInt("inference.max_attempts"),
			Timeout:     viper.GetDuration("inference.timeout"),
			Backoff:     viper.GetDuration("inference.backoff"),
		},
		Pipeline: types.PipelineConfig{
			Workers:             viper.GetInt("pipeline.workers"),
			SummaryWorkers:      viper.GetInt("pipeline.summary_workers"),
			HeadWindow:          viper.GetInt("pipeline.head_window"),
			ContextWindow:       viper.GetInt("pipeline.context_window"),
			PromptAbstractChars: viper.GetInt("pipeline.prompt_abstract_chars"),
			FetchAbstracts:      viper.GetBool("pipeline.fetch_abstracts"),
			AbstractTimeout:     viper.GetDuration("pipeline.abstract_timeout"),
			Budgets: types.Budgets{
				Probe:       viper.GetInt("pipeline.budgets.probe"),
				Affiliation: viper.GetInt("pipeline.budgets.affiliation"),
				Summary:     viper.GetInt("pipeline.budgets.summary"),
				Ranking:     viper.GetInt("pipeline.budgets.ranking"),
			},
		},
		Rules: types.RulesConfig{
			LabsFile:      viper.GetString("rules.labs_file"),
			CompaniesFile: viper.GetString("rules.companies_file"),
			YAMLFile:      viper.GetString("rules.yaml_file"),
		},
		Acquisition: types.AcquisitionConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("acquisition.timeout"),
				UserAgent: viper.GetString("acquisition.user_agent"),
			},
			Categories: viper.GetStringSlice("acquisition.categories"),
			MaxAgeDays: viper.GetInt("acquisition.max_age_days"),
			FetchDelay: viper.GetDuration("acquisition.fetch_delay"),
			MaxPapers:  viper.GetInt("acquisition.max_papers"),
			OutputFile: viper.GetString("acquisition.output_file"),
		},
		History: types.HistoryConfig{
			DBPath:        viper.GetString("history.db_path"),
			RetentionDays: viper.GetInt("history.retention_days"),
			DailyFile:     viper.GetString("history.daily_file"),
			ExportFile:    viper.GetString("history.export_file"),
		},
	}
}
