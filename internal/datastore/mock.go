package datastore

import (
	"context"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetStore implements the StoreManager interface.
func (m *MockStoreManager) GetStore() contract.Store {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.Store)
	return store
}

// MockStore is a mock implementation of Store for testing.
type MockStore struct {
	mock.Mock
}

var _ contract.Store = &MockStore{} // Compile-time check

func int64PtrArg(args mock.Arguments, i int) *int64 {
	v, _ := args.Get(i).(*int64)
	return v
}

// GetUser implements the Store interface.
func (m *MockStore) GetUser(ctx context.Context, userID int64) (schema.IvaUser, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(schema.IvaUser), args.Error(1)
}

// ListActiveUsers implements the Store interface.
func (m *MockStore) ListActiveUsers(ctx context.Context) ([]schema.IvaUser, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]schema.IvaUser)
	return users, args.Error(1)
}

// ListWorkStatusChanges implements the Store interface.
func (m *MockStore) ListWorkStatusChanges(ctx context.Context, userID int64) ([]schema.WorkStatusChange, error) {
	args := m.Called(ctx, userID)
	changes, _ := args.Get(0).([]schema.WorkStatusChange)
	return changes, args.Error(1)
}

// ListWorkStatusSettings implements the Store interface.
func (m *MockStore) ListWorkStatusSettings(ctx context.Context) ([]schema.WorkStatusSetting, error) {
	args := m.Called(ctx)
	settings, _ := args.Get(0).([]schema.WorkStatusSetting)
	return settings, args.Error(1)
}

// ListUserOverrides implements the Store interface.
func (m *MockStore) ListUserOverrides(ctx context.Context, userID int64) ([]schema.UserHourOverride, error) {
	args := m.Called(ctx, userID)
	overrides, _ := args.Get(0).([]schema.UserHourOverride)
	return overrides, args.Error(1)
}

// FindProjectID implements the Store interface.
func (m *MockStore) FindProjectID(ctx context.Context, externalProjectID string, version schema.APIVersion) (*int64, error) {
	args := m.Called(ctx, externalProjectID, version)
	return int64PtrArg(args, 0), args.Error(1)
}

// FindTaskByExternalID implements the Store interface.
func (m *MockStore) FindTaskByExternalID(ctx context.Context, externalTaskID string, version schema.APIVersion) (*int64, error) {
	args := m.Called(ctx, externalTaskID, version)
	return int64PtrArg(args, 0), args.Error(1)
}

// ClaimTaskByName implements the Store interface.
func (m *MockStore) ClaimTaskByName(ctx context.Context, taskName, externalTaskID string, version schema.APIVersion) (*int64, error) {
	args := m.Called(ctx, taskName, externalTaskID, version)
	return int64PtrArg(args, 0), args.Error(1)
}

// UpsertWorklogs implements the Store interface.
func (m *MockStore) UpsertWorklogs(ctx context.Context, rows []schema.RawWorklogRow) (int, int, error) {
	args := m.Called(ctx, rows)
	return args.Int(0), args.Int(1), args.Error(2)
}

// ExistingWorklogIDs implements the Store interface.
func (m *MockStore) ExistingWorklogIDs(ctx context.Context, externalIDs []string, version schema.APIVersion) (map[string]struct{}, error) {
	args := m.Called(ctx, externalIDs, version)
	ids, _ := args.Get(0).(map[string]struct{})
	return ids, args.Error(1)
}

// ListWorklogs implements the Store interface.
func (m *MockStore) ListWorklogs(ctx context.Context, filter schema.WorklogFilter) ([]schema.RawWorklogRow, error) {
	args := m.Called(ctx, filter)
	rows, _ := args.Get(0).([]schema.RawWorklogRow)
	return rows, args.Error(1)
}

// ReplaceDailySummaries implements the Store interface.
func (m *MockStore) ReplaceDailySummaries(ctx context.Context, userID int64, reportDate, dayStart, dayEnd time.Time, build contract.SummaryBuilder) error {
	args := m.Called(ctx, userID, reportDate, dayStart, dayEnd, build)
	return args.Error(0)
}

// SumBillableSeconds implements the Store interface.
func (m *MockStore) SumBillableSeconds(ctx context.Context, userID int64, start, end time.Time) (int64, error) {
	args := m.Called(ctx, userID, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// ListDailySummaries implements the Store interface.
func (m *MockStore) ListDailySummaries(ctx context.Context, start, end time.Time) ([]schema.DailyWorklogSummary, error) {
	args := m.Called(ctx, start, end)
	rows, _ := args.Get(0).([]schema.DailyWorklogSummary)
	return rows, args.Error(1)
}

// GetSyncDay implements the Store interface.
func (m *MockStore) GetSyncDay(ctx context.Context, date time.Time, version schema.APIVersion) (*schema.SyncDayMeta, error) {
	args := m.Called(ctx, date, version)
	meta, _ := args.Get(0).(*schema.SyncDayMeta)
	return meta, args.Error(1)
}

// SaveSyncDay implements the Store interface.
func (m *MockStore) SaveSyncDay(ctx context.Context, meta schema.SyncDayMeta) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

// ListSyncDays implements the Store interface.
func (m *MockStore) ListSyncDays(ctx context.Context, start, end time.Time) ([]schema.SyncDayMeta, error) {
	args := m.Called(ctx, start, end)
	days, _ := args.Get(0).([]schema.SyncDayMeta)
	return days, args.Error(1)
}

// CreateUser implements the Store interface.
func (m *MockStore) CreateUser(ctx context.Context, user schema.IvaUser) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

// AddWorkStatusChange implements the Store interface.
func (m *MockStore) AddWorkStatusChange(ctx context.Context, change schema.WorkStatusChange) (int64, error) {
	args := m.Called(ctx, change)
	return args.Get(0).(int64), args.Error(1)
}

// UpsertWorkStatusSetting implements the Store interface.
func (m *MockStore) UpsertWorkStatusSetting(ctx context.Context, setting schema.WorkStatusSetting) (int64, error) {
	args := m.Called(ctx, setting)
	return args.Get(0).(int64), args.Error(1)
}

// CreateUserOverride implements the Store interface.
func (m *MockStore) CreateUserOverride(ctx context.Context, override schema.UserHourOverride) (int64, error) {
	args := m.Called(ctx, override)
	return args.Get(0).(int64), args.Error(1)
}

// CreateProject implements the Store interface.
func (m *MockStore) CreateProject(ctx context.Context, project schema.Project) (int64, error) {
	args := m.Called(ctx, project)
	return args.Get(0).(int64), args.Error(1)
}

// CreateTask implements the Store interface.
func (m *MockStore) CreateTask(ctx context.Context, task schema.Task) (int64, error) {
	args := m.Called(ctx, task)
	return args.Get(0).(int64), args.Error(1)
}

// CreateReportCategory implements the Store interface.
func (m *MockStore) CreateReportCategory(ctx context.Context, category schema.ReportCategory) (int64, error) {
	args := m.Called(ctx, category)
	return args.Get(0).(int64), args.Error(1)
}

// LinkTaskCategory implements the Store interface.
func (m *MockStore) LinkTaskCategory(ctx context.Context, taskID, categoryID int64) error {
	args := m.Called(ctx, taskID, categoryID)
	return args.Error(0)
}

// Backend implements the Store interface.
func (m *MockStore) Backend() schema.DatabaseBackend {
	args := m.Called()
	return args.Get(0).(schema.DatabaseBackend)
}

// GetStatus implements the Store interface.
func (m *MockStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the Store interface.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
