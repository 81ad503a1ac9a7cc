package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Notifier delivers a project's alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, project string, alerts []Alert) error
}

// SlackNotifier posts alerts to a Slack incoming webhook as Block Kit
// messages.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a SlackNotifier for the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts alerts to the webhook. An empty alert list sends nothing.
func (s *SlackNotifier) Notify(ctx context.Context, project string, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(buildSlackMessage(project, alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// buildSlackMessage renders one section per alert under a project header.
// Text is the fallback shown in notifications.
func buildSlackMessage(project string, alerts []Alert) slackMessage {
	title := fmt.Sprintf("taskgraph: %d alert(s) in %s", len(alerts), project)
	msg := slackMessage{
		Text: title,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
		},
	}

	for i, a := range alerts {
		if i > 0 {
			msg.Blocks = append(msg.Blocks, slackBlock{Type: "divider"})
		}
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("%s *[%s]* %s", severityEmoji(a.Severity), strings.ToUpper(string(a.Severity)), a.Message),
			},
		}, slackBlock{
			Type: "context",
			Elements: []slackText{{
				Type: "mrkdwn",
				Text: fmt.Sprintf("`%s` at %s", a.Condition, a.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC")),
			}},
		})
	}
	return msg
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}
