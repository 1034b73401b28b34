package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartRefreshScheduler starts a cron-based scheduler that periodically
// re-ingests the configured review CSV and posts a summary to the insight
// channel. The schedule is a standard 5-field cron expression (minute hour
// day-of-month month day-of-week). Examples: "0 6 * * *" (daily 6am),
// "0 6 * * 1" (Mondays 6am).
func StartRefreshScheduler(cfg Config, engine *Engine, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.RefreshSchedule)
	if schedule == "" {
		log.Println("Scheduled refresh disabled (refresh_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid refresh_schedule '%s': %v — scheduled refresh disabled", schedule, err)
		return
	}
	log.Printf("Review refresh scheduled (cron: %s) from %s", schedule, cfg.ReviewsCSV)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next review refresh at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			result, refreshErr := engine.Refresh()
			summary := FormatIngestSummary(result)
			if refreshErr != nil {
				log.Printf("Scheduled refresh error: %v", refreshErr)
				summary = fmt.Sprintf("Refresh failed: %v", refreshErr)
			}
			log.Printf("Scheduled refresh complete: %s", summary)

			if cfg.InsightChannelID != "" {
				_, _, postErr := api.PostMessage(cfg.InsightChannelID, slack.MsgOptionText(
					fmt.Sprintf("Review refresh: %s", summary), false))
				if postErr != nil {
					log.Printf("Scheduled refresh post error: %v", postErr)
				}
			}
		}
	}()
}
