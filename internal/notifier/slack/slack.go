package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/metrics"
	"github.com/mauv0809/catch-league/internal/notifier"
	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/ranking"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	return NewNotifierWithAPI(slack.New(token), channelID, metrics)
}

// NewNotifierWithAPI creates a new Notifier with a specific client.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendTournamentFinished(event pubsub.TournamentFinished, dryRun bool) error {
	_, _, err := s.sendMessage(s.formatTournamentFinished(event), dryRun)
	return err
}

func (s *Notifier) SendLeaderboard(title string, policy ranking.Policy, entries []ranking.Entry, dryRun bool) error {
	_, _, err := s.sendMessage(s.formatLeaderboard(title, policy, entries), dryRun)
	return err
}

func (s *Notifier) SendUserStats(stats ranking.Stats, dryRun bool) error {
	_, _, err := s.sendMessage(s.formatUserStats(stats), dryRun)
	return err
}

// FormatLeaderboardResponse formats a leaderboard message for a slash command response.
func (s *Notifier) FormatLeaderboardResponse(title string, policy ranking.Policy, entries []ranking.Entry) (any, error) {
	return s.formatLeaderboard(title, policy, entries), nil
}

// FormatUserStatsResponse formats a user stats message for a slash command response.
func (s *Notifier) FormatUserStatsResponse(stats ranking.Stats) (any, error) {
	return s.formatUserStats(stats), nil
}

func medal(position int) string {
	switch position {
	case 1:
		return ":first_place_medal:"
	case 2:
		return ":second_place_medal:"
	case 3:
		return ":third_place_medal:"
	default:
		return ""
	}
}

// formatTournamentFinished announces the winner and the podium of a finished tournament.
func (s *Notifier) formatTournamentFinished(event pubsub.TournamentFinished) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", fmt.Sprintf(":checkered_flag: %s has ended! :checkered_flag:", event.Name), true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if event.Winner == nil {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", "No catches were registered, so there is no winner this time.", false, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	winnerText := fmt.Sprintf(":trophy: *Winner:* %s with %.2f kg over %d catches",
		event.Winner.UserName,
		event.Winner.TotalWeight,
		event.Winner.TotalCatches,
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", winnerText, false, false), nil, nil))
	blocks = append(blocks, slack.NewDividerBlock())

	var podium []string
	for _, entry := range event.Ranking {
		if entry.Position > 3 {
			break
		}
		podium = append(podium, fmt.Sprintf("%s %s | %.2f kg | %d catches", medal(entry.Position), entry.UserName, entry.TotalWeight, entry.TotalCatches))
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", strings.Join(podium, "\n"), false, false), nil, nil))

	footer := fmt.Sprintf("%d participants", event.Participants)
	blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("mrkdwn", footer, false, false)))
	return slack.NewBlockMessage(blocks...)
}

func (s *Notifier) formatLeaderboard(title string, policy ranking.Policy, entries []ranking.Entry) slack.Message {
	blocks := make([]slack.Block, 0)

	if title == "" {
		title = "League"
	}
	headerText := slack.NewTextBlockObject("plain_text", fmt.Sprintf(":trophy: %s Leaderboard :trophy:", title), true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))
	blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("mrkdwn", "Ranked by *"+string(policy)+"*", false, false)))

	if len(entries) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No catches yet. Go fishing!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for _, entry := range entries {
		line := fmt.Sprintf("%d. %s %s\n> Weight: %.2f kg | Catches: %d | Species: %d | Biggest: %.2f kg | Score: %d",
			entry.Position,
			medal(entry.Position),
			entry.UserName,
			entry.TotalWeight,
			entry.TotalCatches,
			entry.UniqueSpecies,
			entry.BiggestWeight(),
			entry.Score,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", line, true, false), nil, nil))
	}
	return slack.NewBlockMessage(blocks...)
}

func (s *Notifier) formatUserStats(stats ranking.Stats) slack.Message {
	blocks := make([]slack.Block, 0)

	name := stats.UserName
	if name == "" {
		name = stats.UserID
	}
	headerText := fmt.Sprintf(":fishing_pole_and_fish: Stats for %s", name)
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", headerText, true, false)))

	if stats.TotalCatches == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", "No catches registered yet.", false, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	text := fmt.Sprintf("> *Catches*: %d\n> *Total weight*: %.2f kg (avg %.2f kg)\n> *Species*: %d\n> *Active days*: %d\n> *Score*: %d",
		stats.TotalCatches,
		stats.TotalWeight,
		stats.AverageWeight,
		stats.UniqueSpecies,
		stats.ActiveDays,
		stats.Score,
	)
	if stats.BiggestFish != nil {
		text += fmt.Sprintf("\n> *Biggest*: %s, %.2f kg", stats.BiggestFish.Species, stats.BiggestFish.Weight)
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil))
	return slack.NewBlockMessage(blocks...)
}
