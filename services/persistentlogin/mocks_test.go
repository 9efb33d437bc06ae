package persistentlogin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("connection refused")

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindActive(ctx context.Context, series, instance string, now time.Time) (*Record, error) {
	args := m.Called(ctx, series, instance, now)
	record, _ := args.Get(0).(*Record)
	return record, args.Error(1)
}

func (m *mockStore) Insert(ctx context.Context, record *Record) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockStore) UpdateInstance(ctx context.Context, series, oldInstance, newInstance string, refreshed time.Time) (bool, error) {
	args := m.Called(ctx, series, oldInstance, newInstance, refreshed)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, series, instance string) error {
	return m.Called(ctx, series, instance).Error(0)
}

func (m *mockStore) DeleteSeries(ctx context.Context, series string) (int64, error) {
	args := m.Called(ctx, series)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) FindOldestBeyondLimit(ctx context.Context, userID int64, limit int) (*Record, error) {
	args := m.Called(ctx, userID, limit)
	record, _ := args.Get(0).(*Record)
	return record, args.Error(1)
}

func (m *mockStore) DeleteOlderOrEqual(ctx context.Context, userID int64, created, expires int64) (int64, error) {
	args := m.Called(ctx, userID, created, expires)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) FindByUser(ctx context.Context, userID int64, now time.Time) ([]Record, error) {
	args := m.Called(ctx, userID, now)
	records, _ := args.Get(0).([]Record)
	return records, args.Error(1)
}

func (m *mockStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// sequenceGenerator yields "v1", "v2", ... so tests can predict values.
type sequenceGenerator struct {
	mu   sync.Mutex
	next int
	err  error
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.next++
	return fmt.Sprintf("v%d", g.next), nil
}
