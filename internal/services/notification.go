package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/metrics"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// Alert severities
const (
	AlertCritical = "critical"
	AlertWarning  = "warning"
	AlertResolved = "resolved"
)

const (
	notifierClientID    = "alert-notifier"
	notificationTimeout = 15 * time.Second
)

// Alert is an operator notification derived from a learning event.
type Alert struct {
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Event     string    `json:"event"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}

func (a *Alert) icon() string {
	switch a.Severity {
	case AlertCritical:
		return "🔴"
	case AlertWarning:
		return "🟡"
	default:
		return "🟢"
	}
}

func (a *Alert) slackIcon() string {
	switch a.Severity {
	case AlertCritical:
		return ":red_circle:"
	case AlertWarning:
		return ":large_yellow_circle:"
	default:
		return ":large_green_circle:"
	}
}

// AlertFromEvent maps a learning event to an alert. Only safety transitions
// and stats drift are alert-worthy.
func AlertFromEvent(ev LearningEvent) (*Alert, bool) {
	alert := &Alert{Event: ev.Type, RequestID: ev.RequestID, At: ev.At}
	if alert.At.IsZero() {
		alert.At = time.Now()
	}

	switch ev.Type {
	case EventSafetyChanged:
		if ev.Disabled == nil {
			return nil, false
		}
		if *ev.Disabled {
			alert.Severity = AlertCritical
			alert.Title = "Adaptive learning disabled"
		} else {
			alert.Severity = AlertResolved
			alert.Title = "Adaptive learning re-enabled"
		}
		alert.Message = ev.Reason
	case EventStatsDrift:
		alert.Severity = AlertWarning
		alert.Title = "Learning stats drift detected"
		alert.Message = ev.Reason
	default:
		return nil, false
	}
	if alert.Message == "" {
		alert.Message = "no reason recorded"
	}
	return alert, true
}

// NotificationService delivers alerts to the configured IM channels.
type NotificationService struct {
	channels []config.NotifyChannel
}

func NewNotificationService(channels []config.NotifyChannel) *NotificationService {
	active := make([]config.NotifyChannel, 0, len(channels))
	for _, ch := range channels {
		if ch.Webhook == "" {
			logger.Warnf("[Notification] Channel %q has no webhook, skipped", ch.Name)
			continue
		}
		if ch.Type == "" {
			ch.Type = "generic"
		}
		active = append(active, ch)
	}
	return &NotificationService{channels: active}
}

// Enabled reports whether any channel is configured.
func (s *NotificationService) Enabled() bool {
	return len(s.channels) > 0
}

// Send posts the alert to every channel. A failing channel does not stop the
// others; all failures are returned joined.
func (s *NotificationService) Send(ctx context.Context, alert *Alert) error {
	var errs []error
	for _, ch := range s.channels {
		if err := getAdapter(ch.Type).SendAlert(ctx, ch, alert); err != nil {
			logger.Warn().Err(err).Str("channel", ch.Name).Str("type", ch.Type).Msg("[Notification] Failed to send alert")
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
			metrics.AlertsSent.WithLabelValues(ch.Type, "error").Inc()
			continue
		}
		metrics.AlertsSent.WithLabelValues(ch.Type, "ok").Inc()
		logger.Info().Str("channel", ch.Name).Str("event", alert.Event).Msg("[Notification] Alert sent")
	}
	return errors.Join(errs...)
}

// Run forwards alert-worthy hub events until ctx is done.
func (s *NotificationService) Run(ctx context.Context, hub *EventHub) {
	if !s.Enabled() || hub == nil {
		return
	}
	events := hub.Subscribe(notifierClientID)
	defer hub.Unsubscribe(notifierClientID)

	logger.Infof("[Notification] Forwarding learning alerts to %d channel(s)", len(s.channels))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			alert, ok := AlertFromEvent(ev)
			if !ok {
				continue
			}
			sendCtx, cancel := context.WithTimeout(ctx, notificationTimeout)
			_ = s.Send(sendCtx, alert)
			cancel()
		}
	}
}
