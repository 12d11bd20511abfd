package schema

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	applied map[int]time.Time
	calls   []int
	failOn  int
}

func (f *fakeRunner) CreateMigrationsTable(context.Context) error { return nil }

func (f *fakeRunner) GetAppliedMigrations(context.Context) (map[int]time.Time, error) {
	return f.applied, nil
}

func (f *fakeRunner) ApplyMigration(_ context.Context, m Migration) error {
	if m.Version == f.failOn {
		return errors.New("boom")
	}
	f.calls = append(f.calls, m.Version)
	return nil
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	r := &fakeRunner{applied: map[int]time.Time{1: time.Now()}}

	done, err := Migrate(context.Background(), r, []Migration{
		{Version: 3}, {Version: 1}, {Version: 2},
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, done)
	assert.Equal(t, []int{2, 3}, r.calls)
}

func TestMigrate_StopsOnFailure(t *testing.T) {
	r := &fakeRunner{applied: map[int]time.Time{}, failOn: 2}

	done, err := Migrate(context.Background(), r, []Migration{
		{Version: 1}, {Version: 2}, {Version: 3},
	}, zap.NewNop())

	assert.EqualError(t, err, "boom")
	assert.Equal(t, []int{1}, done)
}
