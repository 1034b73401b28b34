package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

func StartSlackBot(cfg Config, engine *Engine, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, engine, cfg, cmd)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, engine *Engine, cfg Config, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/voc-ask":
		handleAsk(api, engine, cmd)
	case "/voc-stats":
		handleStats(api, engine, cmd)
	case "/voc-refresh":
		handleRefresh(api, engine, cmd)
	case "/voc-help":
		handleHelp(api, cmd)
	}
}

func handleAsk(api *slack.Client, engine *Engine, cmd slack.SlashCommand) {
	filters, query, err := parseAskArgs(cmd.Text)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Could not parse filters: %v\nUsage: /voc-ask [sentiment=negative] [category=toys] [keyword=delivery] <question>", err))
		return
	}
	if query == "" {
		postEphemeral(api, cmd, "Usage: /voc-ask [sentiment=negative] [category=toys] [keyword=delivery] <question>\nExample: /voc-ask sentiment=negative what do customers complain about most?")
		return
	}

	answer, err := engine.Ask(context.Background(), query, filters)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuerySuperseded):
			log.Printf("ask superseded user=%s query=%q", cmd.UserID, query)
			return
		case errors.Is(err, ErrRetrievalTimeout):
			postEphemeral(api, cmd, "The insight service timed out. Please try again.")
		case errors.Is(err, ErrRetrievalTransport):
			postEphemeral(api, cmd, "Could not reach the insight service. Check the logs and try again later.")
		default:
			var malformed *MalformedAnswerError
			if errors.As(err, &malformed) {
				postEphemeral(api, cmd, "The insight service could not produce an answer for this question.")
			} else {
				log.Printf("ask error user=%s: %v", cmd.UserID, err)
				postEphemeral(api, cmd, "Something went wrong answering that question.")
			}
		}
		return
	}

	postEphemeral(api, cmd, formatAnswerMessage(answer))
}

func handleStats(api *slack.Client, engine *Engine, cmd slack.SlashCommand) {
	filters, dims, err := parseStatsArgs(cmd.Text)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Could not parse arguments: %v\nUsage: /voc-stats [by=sentiment,rating_bucket] [sentiment=...] [category=...] [keyword=...]", err))
		return
	}

	result, err := engine.GetAggregation(filters, dims)
	if err != nil {
		log.Printf("stats error user=%s: %v", cmd.UserID, err)
		postEphemeral(api, cmd, fmt.Sprintf("Could not compute statistics: %v", err))
		return
	}

	kpi, err := engine.GetAggregation(filters, []GroupDim{DimSentiment})
	if err != nil {
		log.Printf("stats kpi error user=%s: %v", cmd.UserID, err)
		postEphemeral(api, cmd, fmt.Sprintf("Could not compute statistics: %v", err))
		return
	}

	postEphemeral(api, cmd, formatStatsMessage(result, kpi, engine.LastIngest()))
}

func handleRefresh(api *slack.Client, engine *Engine, cmd slack.SlashCommand) {
	result, err := engine.Refresh()
	if err != nil {
		log.Printf("refresh error user=%s: %v", cmd.UserID, err)
		postEphemeral(api, cmd, fmt.Sprintf("Refresh failed: %v", err))
		return
	}
	postEphemeral(api, cmd, FormatIngestSummary(result))
}

func handleHelp(api *slack.Client, cmd slack.SlashCommand) {
	help := "*Voice of Customer bot*\n" +
		"• `/voc-ask [filters] <question>` — Ask a question over the filtered reviews (e.g. `/voc-ask sentiment=negative keyword=delivery why are deliveries late?`)\n" +
		"• `/voc-stats [by=dims] [filters]` — Summary table (dims: period, category, sentiment, rating_bucket)\n" +
		"• `/voc-refresh` — Re-ingest and re-label the review CSV\n" +
		"• `/voc-help` — This message\n" +
		"Filters: `sentiment=`, `category=`, `keyword=`"
	postEphemeral(api, cmd, help)
}

// parseAskArgs splits leading key=value filter tokens from the free-form
// question that follows them.
func parseAskArgs(text string) (Filters, string, error) {
	var filters Filters
	fields := strings.Fields(strings.TrimSpace(text))

	i := 0
	for ; i < len(fields); i++ {
		key, value, ok := strings.Cut(fields[i], "=")
		if !ok {
			break
		}
		if err := applyFilterToken(&filters, key, value); err != nil {
			return Filters{}, "", err
		}
	}
	return filters, strings.Join(fields[i:], " "), nil
}

// parseStatsArgs accepts key=value tokens only; "by=" lists the grouping
// dimensions, everything else is a filter. Default grouping is sentiment.
func parseStatsArgs(text string) (Filters, []GroupDim, error) {
	var filters Filters
	dims := []GroupDim{DimSentiment}

	for _, field := range strings.Fields(strings.TrimSpace(text)) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return Filters{}, nil, fmt.Errorf("expected key=value, got %q", field)
		}
		if strings.EqualFold(key, "by") {
			dims = dims[:0]
			for _, raw := range strings.Split(value, ",") {
				dim, err := ParseGroupDim(raw)
				if err != nil {
					return Filters{}, nil, err
				}
				dims = append(dims, dim)
			}
			continue
		}
		if err := applyFilterToken(&filters, key, value); err != nil {
			return Filters{}, nil, err
		}
	}
	return filters, dims, nil
}

func applyFilterToken(filters *Filters, key, value string) error {
	switch strings.ToLower(key) {
	case "sentiment":
		s, err := ParseSentiment(value)
		if err != nil {
			return err
		}
		filters.Sentiments = append(filters.Sentiments, s)
	case "category":
		filters.Category = value
	case "keyword":
		filters.Keyword = value
	default:
		return fmt.Errorf("unknown filter %q", key)
	}
	return nil
}

func formatAnswerMessage(answer InsightAnswer) string {
	var sb strings.Builder
	sb.WriteString(answer.AnswerText)
	if len(answer.EvidenceIDs) > 0 {
		sb.WriteString(fmt.Sprintf("\n\n_Based on reviews: %s_", strings.Join(answer.EvidenceIDs, ", ")))
	}
	if answer.LatencyMS > 0 {
		sb.WriteString(fmt.Sprintf("\n_(answered in %dms)_", answer.LatencyMS))
	}
	return sb.String()
}

func formatStatsMessage(result, kpi AggregationResult, ingest IngestResult) string {
	var positive, negative int
	for _, row := range kpi.Rows {
		switch Sentiment(row.Key[0]) {
		case SentimentPositive:
			positive = row.Count
		case SentimentNegative:
			negative = row.Count
		}
	}

	var sb strings.Builder
	sb.WriteString("*Voice of Customer — stats*\n")
	sb.WriteString(fmt.Sprintf("Total: %d | Positive: %d | Negative: %d\n", result.Total, positive, negative))
	if ingest.TotalRows > 0 {
		sb.WriteString(fmt.Sprintf("Last ingest: %s\n", FormatIngestSummary(ingest)))
	}

	dimNames := make([]string, len(result.Dims))
	for i, dim := range result.Dims {
		dimNames[i] = string(dim)
	}
	sb.WriteString(fmt.Sprintf("\n*By %s:*\n", strings.Join(dimNames, ", ")))
	for _, row := range result.Rows {
		line := fmt.Sprintf("• %s — %d reviews", strings.Join(row.Key, " / "), row.Count)
		if row.RatedCount > 0 {
			line += fmt.Sprintf(", avg rating %.1f", row.MeanRating)
		}
		sb.WriteString(line + "\n")
	}
	if len(result.Rows) == 0 {
		sb.WriteString("_No reviews match the current filters._\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	_, err := api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral message: %v", err)
	}
}
