package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// NotificationAdapter formats an alert for one IM platform and posts it.
type NotificationAdapter interface {
	SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error
}

// getAdapter returns the adapter for the given channel type
func getAdapter(channelType string) NotificationAdapter {
	switch channelType {
	case "wechat_work":
		return &wecomAdapter{}
	case "dingtalk":
		return &dingtalkAdapter{}
	case "feishu":
		return &feishuAdapter{}
	case "slack":
		return &slackAdapter{}
	case "discord":
		return &discordAdapter{}
	case "teams":
		return &teamsAdapter{}
	case "telegram":
		return &telegramAdapter{}
	default:
		return &genericAdapter{}
	}
}

var notificationHTTPClient = &http.Client{Timeout: 10 * time.Second}

func postJSON(ctx context.Context, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := notificationHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	logger.Debug().Int("status", resp.StatusCode).Int("payload", len(body)).Msg("[Notification] Delivered")
	return nil
}

// buildAlertMessage renders an alert as markdown.
func buildAlertMessage(a *Alert) string {
	var sb strings.Builder
	sb.WriteString(a.icon())
	sb.WriteString(" **")
	sb.WriteString(a.Title)
	sb.WriteString("**\n\n")
	sb.WriteString(a.Message)
	if a.RequestID != "" {
		sb.WriteString("\n\n**Request**: ")
		sb.WriteString(a.RequestID)
	}
	sb.WriteString("\n**Time**: ")
	sb.WriteString(a.At.UTC().Format(time.RFC3339))
	return sb.String()
}

func dingTalkSign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func feishuSign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func dingTalkWebhookURL(webhook, secret string) string {
	if secret == "" {
		return webhook
	}
	sep := "&"
	if !strings.Contains(webhook, "?") {
		sep = "?"
	}
	timestamp := time.Now().UnixMilli()
	sign := dingTalkSign(timestamp, secret)
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s", webhook, sep, timestamp, url.QueryEscape(sign))
}

// wecomAdapter handles WeCom (Enterprise WeChat) bots
type wecomAdapter struct{}

func (a *wecomAdapter) SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error {
	payload := map[string]interface{}{
		"msgtype": "markdown_v2",
		"markdown_v2": map[string]string{
			"content": buildAlertMessage(alert),
		},
	}
	return postJSON(ctx, ch.Webhook, payload)
}

// dingtalkAdapter handles DingTalk bots
type dingtalkAdapter struct{}

func (a *dingtalkAdapter) SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error {
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": alert.Title,
			"text":  buildAlertMessage(alert),
		},
	}
	return postJSON(ctx, dingTalkWebhookURL(ch.Webhook, ch.Secret), payload)
}

// feishuAdapter handles Feishu (Lark) bots
type feishuAdapter struct{}

func (a *feishuAdapter) SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error {
	payload := map[string]interface{}{
		"msg_type": "text",
		"content": map[string]string{
			"text": buildAlertMessage(alert),
		},
	}
	if ch.Secret != "" {
		timestamp := time.Now().Unix()
		payload["timestamp"] = fmt.Sprintf("%d", timestamp)
		payload["sign"] = feishuSign(timestamp, ch.Secret)
	}
	return postJSON(ctx, ch.Webhook, payload)
}

// slackAdapter handles Slack incoming webhooks
type slackAdapter struct{}

func (a *slackAdapter) SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error {
	header := fmt.Sprintf("%s *%s*", alert.slackIcon(), alert.Title)
	payload := map[string]interface{}{
		"text": header,
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{"type": "mrkdwn", "text": header},
			},
			{
				"type": "section",
				"text": map[string]string{"type": "mrkdwn", "text": alert.Message},
			},
		},
	}
	return postJSON(ctx, ch.Webhook, payload)
}

// discordAdapter handles Discord webhooks
type discordAdapter struct{}

func (a *discordAdapter) SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error {
	return postJSON(ctx, ch.Webhook, map[string]interface{}{
		"content": buildAlertMessage(alert),
	})
}

// teamsAdapter handles Microsoft Teams webhooks
type teamsAdapter struct{}

func buildAdaptiveCard(text string) map[string]interface{} {
	return map[string]interface{}{
		"type": "message",
		"attachments": []map[string]interface{}{
			{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"content": map[string]interface{}{
					"type":    "AdaptiveCard",
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
					"version": "1.5",
					"body": []map[string]interface{}{
						{
							"type": "TextBlock",
							"text": text,
							"wrap": true,
						},
					},
				},
			},
		},
	}
}

func (a *teamsAdapter) SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error {
	return postJSON(ctx, ch.Webhook, buildAdaptiveCard(buildAlertMessage(alert)))
}

// telegramAdapter posts to the Bot API sendMessage endpoint; Extra is the chat_id.
type telegramAdapter struct{}

func (a *telegramAdapter) SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error {
	if ch.Extra == "" {
		return fmt.Errorf("telegram chat_id is required in extra field")
	}
	payload := map[string]interface{}{
		"chat_id":    ch.Extra,
		"text":       buildAlertMessage(alert),
		"parse_mode": "Markdown",
	}
	return postJSON(ctx, ch.Webhook, payload)
}

// genericAdapter posts the alert fields as plain JSON
type genericAdapter struct{}

func (a *genericAdapter) SendAlert(ctx context.Context, ch config.NotifyChannel, alert *Alert) error {
	return postJSON(ctx, ch.Webhook, alert)
}
