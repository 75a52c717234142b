// Package notify delivers retainer alerts and due-soon notices to Slack.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/rpggio/agencyops/internal/domain/retainer"
	"github.com/rpggio/agencyops/internal/domain/workload"
)

// PostFunc sends a webhook message. slack.PostWebhookContext satisfies it.
type PostFunc func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// Slack posts alerts to an incoming webhook.
type Slack struct {
	webhookURL string
	appURL     string
	post       PostFunc
	logger     zerolog.Logger
}

// NewSlack creates a notifier for the given webhook. appURL, when set, is
// used to link the client's retainer page.
func NewSlack(webhookURL, appURL string, logger zerolog.Logger) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		appURL:     strings.TrimRight(appURL, "/"),
		post:       slack.PostWebhookContext,
		logger:     logger.With().Str("component", "notify").Logger(),
	}
}

// WithPoster replaces the webhook transport.
func (s *Slack) WithPoster(post PostFunc) *Slack {
	s.post = post
	return s
}

// NotifyRetainerAlert posts one alert.
func (s *Slack) NotifyRetainerAlert(ctx context.Context, a retainer.Alert) error {
	msg := &slack.WebhookMessage{
		Text:   AlertText(a),
		Blocks: &slack.Blocks{BlockSet: AlertBlocks(a, s.appURL)},
	}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("posting retainer alert for %s: %w", a.ClientID, err)
	}
	s.logger.Info().
		Str("client_id", a.ClientID).
		Int("threshold", a.Threshold).
		Msg("retainer alert posted")
	return nil
}

// AlertText is the plain fallback line of an alert.
func AlertText(a retainer.Alert) string {
	return fmt.Sprintf("Retainer alert: %s %d%% used (%s/%s hours)",
		a.ClientName, a.PercentUsed, hours(a.UsedHours), hours(a.AllocatedHours))
}

// AlertBlocks builds the Block Kit layout of an alert.
func AlertBlocks(a retainer.Alert, appURL string) []slack.Block {
	heading := "📉 Retainer nearing limit"
	if a.Threshold >= 100 {
		heading = "🚨 Retainer limit reached"
	}

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", "*Client:*\n"+a.ClientName, false, false),
		slack.NewTextBlockObject("mrkdwn", "*Month:*\n"+a.Month, false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Used:*\n%s of %s hours", hours(a.UsedHours), hours(a.AllocatedHours)), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Percent:*\n%d%%", a.PercentUsed), false, false),
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", heading, false, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}
	if appURL != "" {
		link := fmt.Sprintf("<%s/clients/%s|View retainer>", appURL, a.ClientID)
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", link, false, false)))
	}
	return blocks
}

// NotifyTaskDueSoon posts a reminder that a task is coming due.
func (s *Slack) NotifyTaskDueSoon(ctx context.Context, t workload.DueTask) error {
	msg := &slack.WebhookMessage{
		Text:   DueText(t),
		Blocks: &slack.Blocks{BlockSet: DueBlocks(t, s.appURL)},
	}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("posting due notice for %s: %w", t.ID, err)
	}
	s.logger.Info().
		Str("task_id", t.ID).
		Str("user_id", t.AssigneeID).
		Msg("due notice posted")
	return nil
}

// DueText is the plain fallback line of a due-soon notice.
func DueText(t workload.DueTask) string {
	return fmt.Sprintf("Task due soon: %s (%s, due %s)",
		t.Title, t.AssigneeName, t.DueDate.UTC().Format("Jan 2 15:04 MST"))
}

// DueBlocks builds the Block Kit layout of a due-soon notice.
func DueBlocks(t workload.DueTask, appURL string) []slack.Block {
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", "*Task:*\n"+t.Title, false, false),
		slack.NewTextBlockObject("mrkdwn", "*Assignee:*\n"+t.AssigneeName, false, false),
		slack.NewTextBlockObject("mrkdwn", "*Due:*\n"+t.DueDate.UTC().Format("Mon Jan 2 15:04 MST"), false, false),
	}
	if t.ProjectName != nil {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", "*Project:*\n"+*t.ProjectName, false, false))
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", "⏰ Task due soon", false, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}
	if appURL != "" {
		link := fmt.Sprintf("<%s/tasks/%s|View task>", appURL, t.ID)
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", link, false, false)))
	}
	return blocks
}

func hours(v float64) string {
	return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.2f", v), "0"), ".0")
}

// Log writes alerts to the logger. It is used when no webhook is configured.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a logging notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

// NotifyRetainerAlert logs the alert.
func (l *Log) NotifyRetainerAlert(_ context.Context, a retainer.Alert) error {
	l.logger.Warn().
		Str("client_id", a.ClientID).
		Str("month", a.Month).
		Int("threshold", a.Threshold).
		Int("percent_used", a.PercentUsed).
		Msg(AlertText(a))
	return nil
}

// NotifyTaskDueSoon logs the notice.
func (l *Log) NotifyTaskDueSoon(_ context.Context, t workload.DueTask) error {
	l.logger.Info().
		Str("task_id", t.ID).
		Str("user_id", t.AssigneeID).
		Time("due_date", t.DueDate).
		Msg(DueText(t))
	return nil
}
