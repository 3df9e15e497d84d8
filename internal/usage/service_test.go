package usage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := g.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }

func setupUsageTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:usage_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  facility TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	tools := `
CREATE TABLE IF NOT EXISTS tools (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  quantity INTEGER NOT NULL DEFAULT 0,
  category_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	requests := `
CREATE TABLE IF NOT EXISTS requests (
  id TEXT PRIMARY KEY,
  requester_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'Pending',
  date_requested DATETIME NOT NULL,
  date_approved DATETIME,
  date_rejected DATETIME,
  approver_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	requestedTools := `
CREATE TABLE IF NOT EXISTS requested_tools (
  id TEXT PRIMARY KEY,
  request_id TEXT NOT NULL,
  tool_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'Pending',
  created_at DATETIME,
  updated_at DATETIME
);`
	usages := `
CREATE TABLE IF NOT EXISTS tool_usages (
  id TEXT PRIMARY KEY,
  tool_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  quantity_used INTEGER NOT NULL,
  date_used DATETIME NOT NULL
);`
	for _, stmt := range []string{users, tools, requests, requestedTools, usages} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newUsageService(t *testing.T, db *gorm.DB, now time.Time) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, fixedClock{now: now})
	require.NoError(t, err)
	return svc
}

func createUser(t *testing.T, db *gorm.DB, role enums.Role) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash: "x",
		Name:         "Test User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTool(t *testing.T, db *gorm.DB, name string, qty int) *models.Tool {
	t.Helper()

	tool := &models.Tool{
		ID:       uuid.New(),
		Name:     name,
		Quantity: qty,
	}
	require.NoError(t, db.Create(tool).Error)
	return tool
}

func grantApproved(t *testing.T, db *gorm.DB, userID, toolID uuid.UUID, qty int, status enums.RequestStatus) {
	t.Helper()

	request := &models.Request{
		ID:            uuid.New(),
		RequesterID:   userID,
		Status:        status,
		DateRequested: time.Now().UTC(),
	}
	require.NoError(t, db.Create(request).Error)
	line := &models.RequestedTool{
		ID:        uuid.New(),
		RequestID: request.ID,
		ToolID:    toolID,
		Quantity:  qty,
		Status:    status,
	}
	require.NoError(t, db.Create(line).Error)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a coded error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestUsageRecord_withinAllowance(t *testing.T) {
	db := setupUsageTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	svc := newUsageService(t, db, now)

	user := createUser(t, db, enums.RoleUser)
	tool := createTool(t, db, "Torque Wrench", 10)
	grantApproved(t, db, user.ID, tool.ID, 5, enums.RequestStatusApproved)

	actor := Actor{UserID: user.ID, Role: enums.RoleUser}
	record, err := svc.Record(context.Background(), actor, RecordInput{ToolID: tool.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, record.QuantityUsed)
	assert.Equal(t, now, record.DateUsed.UTC().Truncate(time.Second))

	allowance, err := svc.AllowanceFor(context.Background(), actor, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, allowance.Approved)
	assert.Equal(t, 3, allowance.Used)
	assert.Equal(t, 2, allowance.Available)
}

func TestUsageRecord_rejectsOverdraw(t *testing.T) {
	db := setupUsageTestDB(t)
	svc := newUsageService(t, db, time.Now().UTC())

	user := createUser(t, db, enums.RoleUser)
	tool := createTool(t, db, "Torque Wrench", 10)
	grantApproved(t, db, user.ID, tool.ID, 5, enums.RequestStatusApproved)

	actor := Actor{UserID: user.ID, Role: enums.RoleUser}
	_, err := svc.Record(context.Background(), actor, RecordInput{ToolID: tool.ID, Quantity: 4})
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), actor, RecordInput{ToolID: tool.ID, Quantity: 2})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	typed := pkgerrors.As(err)
	allowance, ok := typed.Details().(*Allowance)
	require.True(t, ok)
	assert.Equal(t, 1, allowance.Available)

	records, err := svc.OwnHistory(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestUsageRecord_pendingGrantsDoNotCount(t *testing.T) {
	db := setupUsageTestDB(t)
	svc := newUsageService(t, db, time.Now().UTC())

	user := createUser(t, db, enums.RoleUser)
	tool := createTool(t, db, "Torque Wrench", 10)
	grantApproved(t, db, user.ID, tool.ID, 5, enums.RequestStatusPending)
	grantApproved(t, db, user.ID, tool.ID, 2, enums.RequestStatusApproved)

	actor := Actor{UserID: user.ID, Role: enums.RoleUser}
	allowance, err := svc.AllowanceFor(context.Background(), actor, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, allowance.Approved)

	_, err = svc.Record(context.Background(), actor, RecordInput{ToolID: tool.ID, Quantity: 3})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUsageRecord_validation(t *testing.T) {
	db := setupUsageTestDB(t)
	svc := newUsageService(t, db, time.Now().UTC())

	user := createUser(t, db, enums.RoleUser)
	actor := Actor{UserID: user.ID, Role: enums.RoleUser}

	_, err := svc.Record(context.Background(), actor, RecordInput{ToolID: uuid.New(), Quantity: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Record(context.Background(), actor, RecordInput{ToolID: uuid.Nil, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Record(context.Background(), actor, RecordInput{ToolID: uuid.New(), Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUsageLockTool_reportsExistenceWithoutChangingStock(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	tool := createTool(t, db, "Torque Wrench", 7)

	locked, err := repo.LockTool(context.Background(), tool.ID)
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = repo.LockTool(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, locked)

	var reloaded models.Tool
	require.NoError(t, db.Where("id = ?", tool.ID).First(&reloaded).Error)
	assert.Equal(t, 7, reloaded.Quantity)
}

func TestUsageRecord_checksBalanceUnderTheToolLock(t *testing.T) {
	db := setupUsageTestDB(t)
	svc := newUsageService(t, db, time.Now().UTC())

	user := createUser(t, db, enums.RoleUser)
	tool := createTool(t, db, "Torque Wrench", 10)
	grantApproved(t, db, user.ID, tool.ID, 4, enums.RequestStatusApproved)

	// back-to-back records that only jointly overdraw: the second sees the
	// first's committed insert and fails, the balance never goes negative
	actor := Actor{UserID: user.ID, Role: enums.RoleUser}
	_, err := svc.Record(context.Background(), actor, RecordInput{ToolID: tool.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), actor, RecordInput{ToolID: tool.ID, Quantity: 3})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	allowance, err := svc.AllowanceFor(context.Background(), actor, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, allowance.Used)
	assert.Equal(t, 1, allowance.Available)
}

func TestUsageHistory_adminOnlyForTool(t *testing.T) {
	db := setupUsageTestDB(t)
	svc := newUsageService(t, db, time.Now().UTC())

	user := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	tool := createTool(t, db, "Torque Wrench", 10)
	grantApproved(t, db, user.ID, tool.ID, 5, enums.RequestStatusApproved)

	actor := Actor{UserID: user.ID, Role: enums.RoleUser}
	_, err := svc.Record(context.Background(), actor, RecordInput{ToolID: tool.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = svc.HistoryForTool(context.Background(), actor, tool.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	records, err := svc.HistoryForTool(context.Background(), Actor{UserID: admin.ID, Role: enums.RoleAdmin}, tool.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, user.ID, records[0].UserID)
	require.NotNil(t, records[0].User)
	assert.Equal(t, user.Email, records[0].User.Email)
}
