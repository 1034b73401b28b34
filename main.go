package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/slack-go/slack"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	rules := BuildRuleConfig(cfg)

	completer, err := NewCompleter(cfg)
	if err != nil {
		log.Fatalf("Failed to build completer: %v", err)
	}
	retriever := NewRetriever(completer, time.Duration(cfg.AnswerTimeoutSeconds)*time.Second, cfg.AnswerMaxTokens)

	engine := NewEngine(db, rules, retriever, cfg)

	result, err := engine.Refresh()
	if err != nil {
		log.Fatalf("Initial ingest failed: %v", err)
	}
	log.Printf("Initial ingest: %s", FormatIngestSummary(result))

	api := slack.New(
		cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
	)

	StartRefreshScheduler(cfg, engine, api)

	log.Println("Starting Voice of Customer bot...")
	if err := StartSlackBot(cfg, engine, api); err != nil {
		log.Fatalf("Slack bot error: %v", err)
	}
}
