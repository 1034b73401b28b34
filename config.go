package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	ReviewsCSV string `yaml:"reviews_csv"`
	DBPath     string `yaml:"db_path"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	AnswerTimeoutSeconds int `yaml:"answer_timeout_seconds"`
	AnswerMaxTokens      int `yaml:"answer_max_tokens"`
	ContextBudgetChars   int `yaml:"context_budget_chars"`
	ExcerptMaxChars      int `yaml:"excerpt_max_chars"`

	LexiconPath string  `yaml:"lexicon_path"`
	RatingLow   float64 `yaml:"rating_low_threshold"`
	RatingHigh  float64 `yaml:"rating_high_threshold"`

	RefreshSchedule  string `yaml:"refresh_schedule"`
	InsightChannelID string `yaml:"insight_channel_id"`
	Timezone         string `yaml:"timezone"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.ReviewsCSV, "REVIEWS_CSV")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideInt(&cfg.AnswerTimeoutSeconds, "ANSWER_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.AnswerMaxTokens, "ANSWER_MAX_TOKENS")
	envOverrideInt(&cfg.ContextBudgetChars, "CONTEXT_BUDGET_CHARS")
	envOverrideInt(&cfg.ExcerptMaxChars, "EXCERPT_MAX_CHARS")
	envOverride(&cfg.LexiconPath, "LEXICON_PATH")
	envOverrideFloat(&cfg.RatingLow, "RATING_LOW_THRESHOLD")
	envOverrideFloat(&cfg.RatingHigh, "RATING_HIGH_THRESHOLD")
	envOverride(&cfg.RefreshSchedule, "REFRESH_SCHEDULE")
	envOverride(&cfg.InsightChannelID, "INSIGHT_CHANNEL_ID")
	envOverride(&cfg.Timezone, "TIMEZONE")

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.AnswerTimeoutSeconds == 0 {
		cfg.AnswerTimeoutSeconds = 8
	}
	if cfg.AnswerMaxTokens == 0 {
		cfg.AnswerMaxTokens = 1024
	}
	if cfg.ContextBudgetChars == 0 {
		cfg.ContextBudgetChars = 6000
	}
	if cfg.ExcerptMaxChars == 0 {
		cfg.ExcerptMaxChars = 240
	}
	if cfg.RatingLow == 0 {
		cfg.RatingLow = 2
	}
	if cfg.RatingHigh == 0 {
		cfg.RatingHigh = 4
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"slack_bot_token": cfg.SlackBotToken,
		"slack_app_token": cfg.SlackAppToken,
		"reviews_csv":     cfg.ReviewsCSV,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	if cfg.AnswerTimeoutSeconds < 1 {
		log.Fatalf("invalid answer_timeout_seconds '%d': must be >= 1", cfg.AnswerTimeoutSeconds)
	}
	if cfg.AnswerMaxTokens < 1 {
		log.Fatalf("invalid answer_max_tokens '%d': must be >= 1", cfg.AnswerMaxTokens)
	}
	if cfg.ContextBudgetChars < 200 {
		log.Fatalf("invalid context_budget_chars '%d': must be >= 200", cfg.ContextBudgetChars)
	}
	if cfg.ExcerptMaxChars < minExcerptChars {
		log.Fatalf("invalid excerpt_max_chars '%d': must be >= %d", cfg.ExcerptMaxChars, minExcerptChars)
	}
	if cfg.RatingLow >= cfg.RatingHigh {
		log.Fatalf("rating_low_threshold '%g' must be below rating_high_threshold '%g'", cfg.RatingLow, cfg.RatingHigh)
	}
	if cfg.LexiconPath != "" {
		if _, err := LoadLexicon(cfg.LexiconPath); err != nil {
			log.Fatalf("invalid lexicon_path '%s': %v", cfg.LexiconPath, err)
		}
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

// BuildRuleConfig assembles the immutable classification rule table from
// config: default confidences, configured thresholds and the lexicon file
// when one is set.
func BuildRuleConfig(cfg Config) RuleConfig {
	lex := DefaultLexicon()
	if cfg.LexiconPath != "" {
		loaded, err := LoadLexicon(cfg.LexiconPath)
		if err != nil {
			log.Fatalf("invalid lexicon_path '%s': %v", cfg.LexiconPath, err)
		}
		lex = loaded
	}
	rules := DefaultRuleConfig(lex)
	rules.RatingLow = cfg.RatingLow
	rules.RatingHigh = cfg.RatingHigh
	return rules
}
