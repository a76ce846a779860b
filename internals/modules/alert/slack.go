package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"healthwatch/config"

	"github.com/slack-go/slack"
)

const (
	colorCritical = "#FF0000"
	colorWarning  = "#FFA500"
	colorInfo     = "#36A64F"
)

// SlackNotifier posts to an incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	httpClient *http.Client
}

func NewSlackNotifier(cfg config.SlackConfig, httpClient *http.Client) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		username:   cfg.Username,
		httpClient: httpClient,
	}
}

func (n *SlackNotifier) Name() string { return config.ChannelSlack }

func (n *SlackNotifier) Send(ctx context.Context, p AlertPayload) error {
	return slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, n.buildMessage(p))
}

// Ping posts a short connectivity message.
func (n *SlackNotifier) Ping(ctx context.Context) error {
	return n.Send(ctx, AlertPayload{
		Severity:  SeverityInfo,
		Kind:      KindTest,
		Title:     "Health monitor connected",
		Message:   "Slack notifications are configured correctly.",
		Timestamp: time.Now(),
	})
}

func (n *SlackNotifier) buildMessage(p AlertPayload) *slack.WebhookMessage {
	fields := make([]slack.AttachmentField, 0, len(p.Fields))
	for _, f := range p.Fields {
		fields = append(fields, slack.AttachmentField{Title: f.Title, Value: f.Value, Short: f.Short})
	}

	text := p.Title
	if p.MentionAll {
		text = "<!channel> " + text
	}

	channel := p.Channel
	if channel == "" {
		channel = n.channel
	}

	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &slack.WebhookMessage{
		Username: n.username,
		Channel:  channel,
		Text:     text,
		Attachments: []slack.Attachment{{
			Color:    severityColor(p.Severity),
			Title:    p.Title,
			Text:     p.Message,
			Fields:   fields,
			Footer:   "healthwatch",
			Ts:       json.Number(strconv.FormatInt(ts.Unix(), 10)),
			Fallback: p.Title + ": " + p.Message,
		}},
	}
}

func severityColor(s Severity) string {
	switch s {
	case SeverityCritical:
		return colorCritical
	case SeverityWarning:
		return colorWarning
	default:
		return colorInfo
	}
}
