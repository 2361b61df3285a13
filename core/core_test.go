package core

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/datastore"
	"github.com/huangsam/worktally/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := schema.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newSQLiteServices(t *testing.T) *Services {
	t.Helper()
	store, err := datastore.NewStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewServices(contract.DefaultConfig(), store)
}

func TestWeeks(t *testing.T) {
	svc := NewServices(contract.DefaultConfig(), nil)

	year, err := svc.Weeks(2024, 0)
	require.NoError(t, err)
	assert.Len(t, year, contract.DefaultWeeksPerYear)

	month, err := svc.Weeks(2024, 2)
	require.NoError(t, err)
	require.Len(t, month, 4)
	assert.Equal(t, 5, month[0].WeekNumber)
	assert.Equal(t, date("2024-02-12"), month[0].StartDate)

	_, err = svc.Weeks(2024, 14)
	assert.ErrorIs(t, err, contract.ErrValidation)
	assert.Contains(t, err.Error(), "out of range 1..13")

	_, err = svc.Weeks(2023, 0)
	assert.Error(t, err)
}

func TestCurrentWeek(t *testing.T) {
	svc := NewServices(contract.DefaultConfig(), nil)

	svc.Calendar.WithClock(func() time.Time { return time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC) })
	week, err := svc.CurrentWeek()
	require.NoError(t, err)
	assert.Equal(t, 1, week.WeekNumber)
	assert.Equal(t, 2024, week.Year)

	svc.Calendar.WithClock(func() time.Time { return time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC) })
	_, err = svc.CurrentWeek()
	assert.ErrorIs(t, err, contract.ErrValidation)
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name string
		req  schema.CalculationRequest
		msg  string
	}{
		{"missing dates", schema.CalculationRequest{UserIDs: []int64{1}}, "dates are required"},
		{"inverted", schema.CalculationRequest{UserIDs: []int64{1}, StartDate: date("2024-01-21"), EndDate: date("2024-01-15")}, "is before start date"},
		{"no users", schema.CalculationRequest{StartDate: date("2024-01-15"), EndDate: date("2024-01-21")}, "either user ids or all users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, contract.ErrValidation)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	assert.NoError(t, validateRequest(schema.CalculationRequest{CalculateAll: true, StartDate: date("2024-01-15"), EndDate: date("2024-01-15")}))
}

func TestNewServicesFromManager(t *testing.T) {
	mgr := &datastore.MockStoreManager{}
	mgr.On("GetStore").Return(nil)
	_, err := NewServicesFromManager(contract.DefaultConfig(), mgr)
	assert.ErrorIs(t, err, contract.ErrPersistence)
	mgr.AssertExpectations(t)
}

func TestTargetsAndRecompute(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteServices(t)

	hire := date("2024-01-10")
	for _, name := range []string{"Jordan Lee", "Sam Ortiz"} {
		_, err := svc.Store.CreateUser(ctx, schema.IvaUser{FullName: name, WorkStatus: schema.FullTime, HireDate: &hire, IsActive: true})
		require.NoError(t, err)
	}

	results, err := svc.Targets(ctx, schema.CalculationRequest{CalculateAll: true, StartDate: date("2024-01-15"), EndDate: date("2024-01-21")})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.True(t, r.Success, r.Error)
		assert.InDelta(t, contract.DefaultFullTimeHours, r.TargetCalculations[0].TargetTotalHours, 0.001)
	}

	_, err = svc.Targets(ctx, schema.CalculationRequest{StartDate: date("2024-01-15"), EndDate: date("2024-01-21")})
	assert.ErrorIs(t, err, contract.ErrValidation)

	// Empty user ids means every active user: 2 users x 3 days.
	n, err := svc.RecomputeSummaries(ctx, nil, date("2024-01-15"), date("2024-01-17"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = svc.RecomputeSummaries(ctx, []int64{1}, date("2024-01-15"), date("2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.RecomputeSummaries(ctx, nil, date("2024-01-17"), date("2024-01-15"))
	assert.ErrorIs(t, err, contract.ErrValidation)
}
