// Package events publishes a notification after every analysed submission so
// that other services can follow an interrogation as it happens.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/core/model"
)

// DefaultSubject is used when the configuration leaves the subject empty.
const DefaultSubject = "investigation.qa.analyzed"

// SubmissionAnalyzed is the payload published once per answered submission.
type SubmissionAnalyzed struct {
	SessionID          string           `json:"session_id"`
	Seq                int64            `json:"seq"`
	Question           string           `json:"question"`
	Answer             string           `json:"answer"`
	SuggestedQuestions []string         `json:"suggested_questions"`
	Findings           []model.Finding  `json:"findings,omitempty"`
	Conflict           bool             `json:"conflict"`
	Degraded           bool             `json:"degraded"`
	Status             model.SyncStatus `json:"status"`
	GraphReference     string           `json:"graph_reference"`
	Timestamp          time.Time        `json:"timestamp"`
}

func NewSubmissionAnalyzed(entry model.TranscriptEntry, result model.AnalysisResult, graphRef string) SubmissionAnalyzed {
	return SubmissionAnalyzed{
		SessionID:          entry.SessionID,
		Seq:                entry.Seq,
		Question:           entry.Question,
		Answer:             entry.Answer,
		SuggestedQuestions: result.SuggestedQuestions,
		Findings:           result.Findings,
		Conflict:           result.HasConflict(),
		Degraded:           result.Degraded || result.Status.GraphDegraded || !result.Status.RelationalOK,
		Status:             result.Status,
		GraphReference:     graphRef,
		Timestamp:          entry.Timestamp,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev SubmissionAnalyzed) error
	Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, SubmissionAnalyzed) error { return nil }

func (NopPublisher) Close() {}

type NatsPublisher struct {
	conn    *nats.Conn
	subject string
	log     logrus.FieldLogger
}

func NewNatsPublisher(url, token, subject string, log logrus.FieldLogger) (*NatsPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	opts := []nats.Option{
		nats.Name("inquest"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.WithField("subject", subject).Info("publishing submission events to nats")
	return &NatsPublisher{conn: nc, subject: subject, log: log}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, ev SubmissionAnalyzed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set("Session-Id", ev.SessionID)
	return p.conn.PublishMsg(msg)
}

func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
