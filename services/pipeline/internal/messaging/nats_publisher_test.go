package messaging

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/models"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	closed  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.subject, c.data = subject, data
	return c.err
}

func (c *fakeConn) Close() { c.closed = true }

func TestPublishRunCompleted(t *testing.T) {
	conn := &fakeConn{}
	p := NewConnPublisher(conn, "jobs.cleaned", zaptest.NewLogger(t))

	summary := &models.RunSummary{
		RunID:       "run-1",
		Status:      models.RunStatusSucceeded,
		StartedAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		RowsWritten: 12,
		Table:       "ai_jobdataset",
	}
	require.NoError(t, p.PublishRunCompleted(context.Background(), summary))

	assert.Equal(t, "jobs.cleaned", conn.subject)
	var got models.RunSummary
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, int64(12), got.RowsWritten)
	assert.Equal(t, "ai_jobdataset", got.Table)

	p.Close()
	assert.True(t, conn.closed)
}

func TestPublishRunCompleted_Error(t *testing.T) {
	conn := &fakeConn{err: stderrors.New("nats: connection closed")}
	p := NewConnPublisher(conn, "jobs.cleaned", zaptest.NewLogger(t))

	err := p.PublishRunCompleted(context.Background(), &models.RunSummary{RunID: "x"})
	assert.True(t, errors.Is(err, errors.ErrTypeUnavailable))
}

func TestNewPublisher_DisabledWithoutURL(t *testing.T) {
	p, err := NewPublisher(zaptest.NewLogger(t), &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.PublishRunCompleted(context.Background(), &models.RunSummary{}))
}
