package messaging

import (
	"context"
	"encoding/json"
	"time"

	"jobclean/common/telemetry"
	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobclean/pipeline/messaging")

type Publisher interface {
	PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error
	Close()
}

// Conn is the part of *nats.Conn a publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

type natsPublisher struct {
	conn    Conn
	subject string
	logger  *zap.Logger
}

// Connect dials NATS_URL with reconnects enabled.
func Connect(cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("jobclean-pipeline"),
		nats.Timeout(cfg.NATSConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, errors.Unavailable("connecting to NATS", err)
	}
	return conn, nil
}

// NewPublisher returns a NATS publisher, or one that drops every event when
// NATS_URL is empty.
func NewPublisher(logger *zap.Logger, cfg *config.Config) (Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("NATS_URL not set, run events are disabled")
		return NopPublisher{}, nil
	}

	conn, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	return NewConnPublisher(conn, cfg.NATSRunSubject, logger), nil
}

func NewConnPublisher(conn Conn, subject string, logger *zap.Logger) Publisher {
	return &natsPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}
}

func (p *natsPublisher) PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error {
	_, span := tracer.Start(ctx, "PublishRunCompleted")
	defer span.End()

	data, err := json.Marshal(summary)
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling run summary", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", p.subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(p.subject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish run summary",
			zap.String("run_id", summary.RunID),
			zap.Error(err))
		return errors.Unavailable("publishing to NATS", err)
	}

	p.logger.Debug("published run summary",
		zap.String("run_id", summary.RunID),
		zap.String("subject", p.subject))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

type NopPublisher struct{}

func (NopPublisher) PublishRunCompleted(context.Context, *models.RunSummary) error { return nil }

func (NopPublisher) Close() {}
