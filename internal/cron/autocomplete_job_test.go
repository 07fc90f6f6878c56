package cron

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatohq/mercato-backend/internal/orders"
	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
)

type stubLister struct {
	orders []models.Order
	err    error
}

func (s *stubLister) FindDeliveredBefore(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Order
	for _, o := range s.orders {
		if o.DeliveredAt != nil && o.DeliveredAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubEngine struct {
	calls []orders.TransitionInput
	errs  map[uuid.UUID]error
}

func (s *stubEngine) Transition(_ context.Context, input orders.TransitionInput) (*models.Order, error) {
	s.calls = append(s.calls, input)
	if err, ok := s.errs[input.OrderID]; ok {
		return nil, err
	}
	return &models.Order{ID: input.OrderID, Status: enums.OrderStatusCompleted}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func deliveredOrder(age time.Duration, now time.Time) models.Order {
	at := now.Add(-age)
	return models.Order{ID: uuid.New(), Status: enums.OrderStatusDelivered, DeliveredAt: &at}
}

func TestAutoCompleteSweepCompletesOnlyExpiredWindows(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lister := &stubLister{}
	for i := 0; i < 3; i++ {
		lister.orders = append(lister.orders, deliveredOrder(49*time.Hour, now))
	}
	for i := 0; i < 7; i++ {
		lister.orders = append(lister.orders, deliveredOrder(2*time.Hour, now))
	}
	engine := &stubEngine{}

	job, err := NewAutoCompleteJob(lister, engine, testLogger(), nil, 48*time.Hour)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	count, err := job.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, engine.calls, 3)
	for _, call := range engine.calls {
		assert.Equal(t, enums.OrderStatusCompleted, call.Target)
		assert.Equal(t, enums.ActorRoleSystem, call.Role)
		assert.Equal(t, uuid.Nil, call.ActorID)
	}
}

func TestAutoCompleteSweepSkipsOrdersChangedSinceSelection(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	disputed := deliveredOrder(72*time.Hour, now)
	healthy := deliveredOrder(72*time.Hour, now)
	lister := &stubLister{orders: []models.Order{disputed, healthy}}
	engine := &stubEngine{errs: map[uuid.UUID]error{
		disputed.ID: pkgerrors.New(pkgerrors.CodeStateConflict, "transition delivered -> completed is not allowed"),
	}}

	job, err := NewAutoCompleteJob(lister, engine, testLogger(), nil, 48*time.Hour)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	count, err := job.Sweep(context.Background())
	require.NoError(t, err, "a concurrent dispute is not a sweep failure")
	assert.Equal(t, 1, count)
}

func TestAutoCompleteSweepAggregatesRealFailures(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	broken := deliveredOrder(72*time.Hour, now)
	fine := deliveredOrder(72*time.Hour, now)
	lister := &stubLister{orders: []models.Order{broken, fine}}
	engine := &stubEngine{errs: map[uuid.UUID]error{
		broken.ID: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable"),
	}}

	job, err := NewAutoCompleteJob(lister, engine, testLogger(), nil, 48*time.Hour)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	count, err := job.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken.ID.String())
	assert.Equal(t, 1, count, "healthy orders still complete when a sibling fails")
}

func TestAutoCompleteSweepIsRerunSafe(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lister := &stubLister{orders: []models.Order{deliveredOrder(50*time.Hour, now)}}
	engine := &stubEngine{}

	job, err := NewAutoCompleteJob(lister, engine, testLogger(), nil, 48*time.Hour)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	first, err := job.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	// The completed order no longer matches the delivered filter.
	lister.orders = nil
	second, err := job.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestNewAutoCompleteJobValidatesDeps(t *testing.T) {
	_, err := NewAutoCompleteJob(nil, &stubEngine{}, testLogger(), nil, time.Hour)
	assert.Error(t, err)
	_, err = NewAutoCompleteJob(&stubLister{}, nil, testLogger(), nil, time.Hour)
	assert.Error(t, err)
	_, err = NewAutoCompleteJob(&stubLister{}, &stubEngine{}, nil, nil, time.Hour)
	assert.Error(t, err)
}
