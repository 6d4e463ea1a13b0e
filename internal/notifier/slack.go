package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yairfalse/driftwatch/pkg/types"
)

// SlackTransport posts alerts to a Slack incoming webhook
type SlackTransport struct {
	Channel string
	client  *http.Client
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string `json:"color"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Footer string `json:"footer"`
}

// NewSlackTransport creates a webhook transport. A nil client gets a 10s
// timeout.
func NewSlackTransport(channel string, client *http.Client) *SlackTransport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SlackTransport{Channel: channel, client: client}
}

// Name identifies the transport in logs
func (t *SlackTransport) Name() string {
	return "slack"
}

// Send posts msg to the webhook URL in destination. Slack webhooks return no
// message id, so the id is empty on success.
func (t *SlackTransport) Send(ctx context.Context, destination string, msg Message) (string, error) {
	if destination == "" {
		return "", fmt.Errorf("slack webhook URL is required")
	}

	payload := slackMessage{
		Channel:   t.Channel,
		Username:  "driftwatch",
		IconEmoji: ":satellite:",
		Text:      fmt.Sprintf("*%s*", msg.Subject),
		Attachments: []slackAttachment{
			{
				Color:  slackColor(msg.Risk),
				Title:  msg.Subject,
				Text:   msg.Body,
				Footer: "driftwatch",
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("slack returned non-200 status: %d", resp.StatusCode)
	}

	return "", nil
}

func slackColor(risk types.RiskLevel) string {
	switch risk {
	case types.RiskCritical, types.RiskHigh:
		return "danger"
	case types.RiskMedium:
		return "warning"
	default:
		return "good"
	}
}
