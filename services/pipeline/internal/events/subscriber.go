package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"jobclean/common/telemetry"
	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/models"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const queueGroup = "jobclean-pipeline"

type Runner interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

// RunReply answers a run request sent with a reply subject.
type RunReply struct {
	Summary   *models.RunSummary `json:"summary,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorType string             `json:"error_type,omitempty"`
}

type Handler struct {
	logger  *zap.Logger
	nc      *nats.Conn
	tracer  trace.Tracer
	runner  Runner
	subject string
	sub     *nats.Subscription
	running sync.Mutex
}

func NewHandler(logger *zap.Logger, nc *nats.Conn, runner Runner, cfg *config.Config) *Handler {
	return &Handler{
		logger:  logger,
		nc:      nc,
		tracer:  telemetry.GetTracer("jobclean/pipeline/events"),
		runner:  runner,
		subject: cfg.NATSTriggerSubject,
	}
}

func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	sub, err := h.nc.QueueSubscribe(h.subject, queueGroup, h.handleRunRequest)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", h.subject, err)
	}

	h.sub = sub
	h.logger.Info("Registered NATS subscriptions", zap.String("subject", h.subject))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return h.sub.Drain()
		},
	})

	return nil
}

func (h *Handler) handleRunRequest(msg *nats.Msg) {
	reply := h.Handle(context.Background())

	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		h.logger.Error("Failed to marshal run reply", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		h.logger.Warn("Failed to answer run request",
			zap.String("reply", msg.Reply),
			zap.Error(err))
	}
}

// Handle runs the pipeline once. A request arriving while a run is in
// progress is rejected rather than queued.
func (h *Handler) Handle(ctx context.Context) RunReply {
	ctx, span := h.tracer.Start(ctx, "handleRunRequest")
	defer span.End()

	if !h.running.TryLock() {
		h.logger.Warn("Run request rejected, a run is already in progress")
		return RunReply{
			Error:     "a pipeline run is already in progress",
			ErrorType: string(errors.ErrTypeUnavailable),
		}
	}
	defer h.running.Unlock()

	summary, err := h.runner.Run(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Triggered run failed",
			zap.String("subject", h.subject),
			zap.Error(err))
		return RunReply{Summary: summary, Error: err.Error(), ErrorType: string(errors.TypeOf(err))}
	}

	h.logger.Info("Triggered run completed",
		zap.String("subject", h.subject),
		zap.String("run_id", summary.RunID))
	return RunReply{Summary: summary}
}
