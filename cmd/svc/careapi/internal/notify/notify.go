// Package notify fans out emergency alerts. Urgent alerts publish to an SNS
// topic for push delivery, and share links let staff forward an alert over
// SMS or WhatsApp from their own phone.
package notify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/samuel/go-metrics/metrics"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/golog"
	"github.com/mzansicare/backend/libs/ptr"
)

// SNSAPI is the subset of the SNS client used by the publisher.
type SNSAPI interface {
	Publish(in *sns.PublishInput) (*sns.PublishOutput, error)
}

// Publisher pushes alert notifications to an SNS topic.
type Publisher struct {
	snsAPI         SNSAPI
	topicARN       string
	statSends      *metrics.Counter
	statSendErrors *metrics.Counter
}

// NewPublisher returns a publisher for the provided topic. A nil snsAPI or
// empty topic disables publishing, which is the dev default.
func NewPublisher(snsAPI SNSAPI, topicARN string, metricsRegistry metrics.Registry) *Publisher {
	p := &Publisher{
		snsAPI:         snsAPI,
		topicARN:       topicARN,
		statSends:      metrics.NewCounter(),
		statSendErrors: metrics.NewCounter(),
	}
	if metricsRegistry != nil {
		metricsRegistry.Add("sends", p.statSends)
		metricsRegistry.Add("send_errors", p.statSendErrors)
	}
	return p
}

type alertNotification struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Location string `json:"location,omitempty"`
	Severity string `json:"severity"`
}

// PublishAlert pushes the alert to the topic. Only urgent alerts are pushed,
// lower severities surface in the app's alert list on next refresh.
func (p *Publisher) PublishAlert(alert *models.Alert) error {
	if alert.Severity != models.AlertSeverityUrgent {
		return nil
	}
	if p.snsAPI == nil || p.topicARN == "" {
		golog.Context("alert_id", alert.ID).Infof("SNS publishing disabled, skipping urgent alert push")
		return nil
	}

	msg, err := json.Marshal(&alertNotification{
		ID:       alert.ID.String(),
		Title:    alert.Title,
		Body:     alert.Description,
		Location: alert.Location,
		Severity: strings.ToLower(alert.Severity.String()),
	})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = p.snsAPI.Publish(&sns.PublishInput{
		Message:  ptr.String(string(msg)),
		Subject:  ptr.String(alert.Title),
		TopicArn: ptr.String(p.topicARN),
	})
	if err != nil {
		p.statSendErrors.Inc(1)
		return errors.Trace(err)
	}
	p.statSends.Inc(1)
	return nil
}

// ShareLinks are client openable URLs for forwarding an alert.
type ShareLinks struct {
	SMS      string `json:"sms"`
	WhatsApp string `json:"whatsapp"`
}

// AlertShareLinks builds SMS and WhatsApp links with the alert text
// prefilled so staff can forward it without retyping.
func AlertShareLinks(alert *models.Alert) *ShareLinks {
	body := alertShareText(alert)
	return &ShareLinks{
		SMS:      fmt.Sprintf("sms:?body=%s", url.QueryEscape(body)),
		WhatsApp: fmt.Sprintf("https://wa.me/?text=%s", url.QueryEscape(body)),
	}
}

func alertShareText(alert *models.Alert) string {
	var sb strings.Builder
	switch alert.Severity {
	case models.AlertSeverityUrgent:
		sb.WriteString("URGENT: ")
	case models.AlertSeverityWarning:
		sb.WriteString("Warning: ")
	}
	sb.WriteString(alert.Title)
	if alert.Description != "" {
		sb.WriteString(" - ")
		sb.WriteString(alert.Description)
	}
	if alert.Location != "" {
		sb.WriteString(" (")
		sb.WriteString(alert.Location)
		sb.WriteString(")")
	}
	return sb.String()
}
