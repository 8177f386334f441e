// Package config — конфигурация тренажера: YAML поверх встроенных
// дефолтов. API-ключ берется только из окружения, в файле его нет.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tetraminz/sales_trainer/internal/behavior"
	"github.com/tetraminz/sales_trainer/internal/factcheck"
)

const (
	defaultDBPath        = "out/trainer.db"
	defaultTurnLimit     = 20
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultModel         = "gpt-4.1-mini"
	defaultMaxRetries    = 1
)

// DialogueConfig — настройки внешнего генератора диалога.
type DialogueConfig struct {
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	MaxRetries int    `yaml:"max_retries"`
	// APIKey не сериализуется: только OPENAI_API_KEY.
	APIKey string `yaml:"-"`
}

// Dealership — контекст дилерского центра для сценария.
type Dealership struct {
	Name         string `yaml:"name"`
	City         string `yaml:"city"`
	Phone        string `yaml:"phone"`
	WorkingHours string `yaml:"working_hours"`
}

// Config — полная конфигурация запуска.
type Config struct {
	DBPath     string                `yaml:"db_path"`
	TurnLimit  int                   `yaml:"turn_limit"`
	Dialogue   DialogueConfig        `yaml:"dialogue"`
	Dealership Dealership            `yaml:"dealership"`
	Vehicle    factcheck.GroundTruth `yaml:"vehicle"`
	// Lexicon nil означает встроенные словари.
	Lexicon *behavior.Lexicon `yaml:"lexicon"`
}

// Default возвращает конфигурацию с демо-сценарием.
func Default() Config {
	return Config{
		DBPath:    defaultDBPath,
		TurnLimit: defaultTurnLimit,
		Dialogue: DialogueConfig{
			Model:      defaultModel,
			BaseURL:    defaultOpenAIBaseURL,
			MaxRetries: defaultMaxRetries,
		},
		Dealership: Dealership{
			Name:         "Автоград",
			City:         "Екатеринбург",
			Phone:        "+7 343 000-00-00",
			WorkingHours: "ежедневно 9:00-21:00",
		},
		Vehicle: factcheck.GroundTruth{
			Brand:     "Kia",
			Model:     "Sportage",
			Year:      2023,
			PriceRUB:  2450000,
			MileageKM: 45000,
		},
	}
}

// Load читает YAML поверх дефолтов. Пустой путь — чистые дефолты.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Dialogue.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if strings.TrimSpace(cfg.Dialogue.BaseURL) == "" {
		cfg.Dialogue.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(cfg.Dialogue.Model) == "" {
		cfg.Dialogue.Model = defaultModel
	}
	if cfg.TurnLimit <= 0 {
		cfg.TurnLimit = defaultTurnLimit
	}
	if cfg.Dialogue.MaxRetries < 0 {
		cfg.Dialogue.MaxRetries = 0
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	return cfg, nil
}

// LexiconOrDefault возвращает словари из конфига или встроенные.
func (c Config) LexiconOrDefault() behavior.Lexicon {
	if c.Lexicon != nil {
		return *c.Lexicon
	}
	return behavior.DefaultLexicon()
}
