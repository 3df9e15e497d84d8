package requests

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
	"github.com/hifravl/toolstock-backend/pkg/pagination"
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

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:requests_%s?mode=memory&cache=shared", uuid.NewString())
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
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(tools).Error)
	require.NoError(t, db.Exec(requests).Error)
	require.NoError(t, db.Exec(requestedTools).Error)
	return db
}

func newRequestsService(t *testing.T, db *gorm.DB, now time.Time) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, fixedClock{now: now}, nil)
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

func toolQuantity(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var tool models.Tool
	require.NoError(t, db.Where("id = ?", id).First(&tool).Error)
	return tool.Quantity
}

func TestServiceCreate_roundTrip(t *testing.T) {
	db := setupRequestsTestDB(t)
	now := time.Now().UTC()
	svc := newRequestsService(t, db, now)

	requester := createUser(t, db, enums.RoleUser)
	hammer := createTool(t, db, "Hammer", 10)
	drill := createTool(t, db, "Drill", 4)

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{
			{ToolID: hammer.ID, Quantity: 2},
			{ToolID: drill.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, enums.RequestStatusPending, created.Status)
	assert.Len(t, created.Lines, 2)

	// stock is untouched until approval
	assert.Equal(t, 10, toolQuantity(t, db, hammer.ID))
	assert.Equal(t, 4, toolQuantity(t, db, drill.ID))

	own, err := svc.ListOwn(context.Background(), Actor{UserID: requester.ID, Role: enums.RoleUser})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, created.ID, own[0].ID)
	require.Len(t, own[0].Lines, 2)
	assert.Equal(t, enums.RequestStatusPending, own[0].Lines[0].Status)
}

func TestServiceCreate_validation(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	hammer := createTool(t, db, "Hammer", 10)
	actor := Actor{UserID: requester.ID, Role: enums.RoleUser}

	_, err := svc.Create(context.Background(), CreateInput{Actor: actor})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		Actor: actor,
		Lines: []RequestLine{{ToolID: hammer.ID, Quantity: 0}},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		Actor: actor,
		Lines: []RequestLine{{ToolID: hammer.ID, Quantity: -3}},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		Actor: actor,
		Lines: []RequestLine{
			{ToolID: hammer.ID, Quantity: 1},
			{ToolID: hammer.ID, Quantity: 2},
		},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		Actor: actor,
		Lines: []RequestLine{{ToolID: uuid.New(), Quantity: 1}},
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceApprove_deductsAllLines(t *testing.T) {
	db := setupRequestsTestDB(t)
	now := time.Now().UTC()
	svc := newRequestsService(t, db, now)

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 10)
	drill := createTool(t, db, "Drill", 4)

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{
			{ToolID: hammer.ID, Quantity: 7},
			{ToolID: drill.ID, Quantity: 4},
		},
	})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), DecisionInput{
		RequestID: created.ID,
		Actor:     Actor{UserID: admin.ID, Role: enums.RoleAdmin},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.DateApproved)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, admin.ID, *approved.ApproverID)
	for _, line := range approved.Lines {
		assert.Equal(t, enums.RequestStatusApproved, line.Status)
	}

	assert.Equal(t, 3, toolQuantity(t, db, hammer.ID))
	assert.Equal(t, 0, toolQuantity(t, db, drill.ID))
}

func TestServiceApprove_reportsEveryShortfall(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 2)
	drill := createTool(t, db, "Drill", 0)
	saw := createTool(t, db, "Saw", 50)

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{
			{ToolID: hammer.ID, Quantity: 5},
			{ToolID: drill.ID, Quantity: 1},
			{ToolID: saw.ID, Quantity: 10},
		},
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), DecisionInput{
		RequestID: created.ID,
		Actor:     Actor{UserID: admin.ID, Role: enums.RoleAdmin},
	})
	typed := requireCode(t, err, pkgerrors.CodeInsufficientStock)

	shortfalls, ok := typed.Details().([]StockShortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 2)

	byTool := map[uuid.UUID]StockShortfall{}
	for _, sf := range shortfalls {
		byTool[sf.ToolID] = sf
	}
	require.Contains(t, byTool, hammer.ID)
	require.Contains(t, byTool, drill.ID)
	assert.Equal(t, 5, byTool[hammer.ID].Requested)
	assert.Equal(t, 2, byTool[hammer.ID].InStock)
	assert.Equal(t, 1, byTool[drill.ID].Requested)
	assert.Equal(t, 0, byTool[drill.ID].InStock)
	assert.NotContains(t, byTool, saw.ID)

	// no partial deduction, request still pending
	assert.Equal(t, 2, toolQuantity(t, db, hammer.ID))
	assert.Equal(t, 0, toolQuantity(t, db, drill.ID))
	assert.Equal(t, 50, toolQuantity(t, db, saw.ID))

	var header models.Request
	require.NoError(t, db.Where("id = ?", created.ID).First(&header).Error)
	assert.Equal(t, enums.RequestStatusPending, header.Status)
}

func TestServiceApprove_sequentialDepletion(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	wrench := createTool(t, db, "Wrench", 5)
	adminActor := Actor{UserID: admin.ID, Role: enums.RoleAdmin}

	first, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{{ToolID: wrench.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{{ToolID: wrench.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), DecisionInput{RequestID: first.ID, Actor: adminActor})
	require.NoError(t, err)
	assert.Equal(t, 2, toolQuantity(t, db, wrench.ID))

	_, err = svc.Approve(context.Background(), DecisionInput{RequestID: second.ID, Actor: adminActor})
	typed := requireCode(t, err, pkgerrors.CodeInsufficientStock)

	shortfalls, ok := typed.Details().([]StockShortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, 3, shortfalls[0].Requested)
	assert.Equal(t, 2, shortfalls[0].InStock)

	assert.Equal(t, 2, toolQuantity(t, db, wrench.ID))
}

// staleToolReads simulates a competing approval committing after the
// validation pass by inflating the quantities that pass reads.
type staleToolReads struct {
	Repository
	inflate int
}

func (s staleToolReads) WithTx(tx *gorm.DB) Repository {
	return staleToolReads{Repository: s.Repository.WithTx(tx), inflate: s.inflate}
}

func (s staleToolReads) FindToolsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tool, error) {
	tools, err := s.Repository.FindToolsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tools {
		tools[i].Quantity += s.inflate
	}
	return tools, nil
}

func TestServiceApprove_guardCatchesStaleValidation(t *testing.T) {
	db := setupRequestsTestDB(t)

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	wrench := createTool(t, db, "Wrench", 2)

	repo := staleToolReads{Repository: NewRepository(db), inflate: 10}
	svc, err := NewService(repo, gormTxRunner{db: db}, fixedClock{now: time.Now().UTC()}, nil)
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{{ToolID: wrench.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	// validation saw 12 in stock, the guarded update sees the real 2
	_, err = svc.Approve(context.Background(), DecisionInput{
		RequestID: created.ID,
		Actor:     Actor{UserID: admin.ID, Role: enums.RoleAdmin},
	})
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	assert.Equal(t, 2, toolQuantity(t, db, wrench.ID))

	var header models.Request
	require.NoError(t, db.Where("id = ?", created.ID).First(&header).Error)
	assert.Equal(t, enums.RequestStatusPending, header.Status)
}

func TestServiceReject_neverTouchesStock(t *testing.T) {
	db := setupRequestsTestDB(t)
	now := time.Now().UTC()
	svc := newRequestsService(t, db, now)

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 1)

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{{ToolID: hammer.ID, Quantity: 100}},
	})
	require.NoError(t, err)

	// rejection succeeds even when stock could never satisfy the lines
	rejected, err := svc.Reject(context.Background(), DecisionInput{
		RequestID: created.ID,
		Actor:     Actor{UserID: admin.ID, Role: enums.RoleAdmin},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusRejected, rejected.Status)
	require.NotNil(t, rejected.DateRejected)
	for _, line := range rejected.Lines {
		assert.Equal(t, enums.RequestStatusRejected, line.Status)
	}

	assert.Equal(t, 1, toolQuantity(t, db, hammer.ID))
}

func TestServiceDecisions_immutableAfterDecision(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 10)
	adminActor := Actor{UserID: admin.ID, Role: enums.RoleAdmin}

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{{ToolID: hammer.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), DecisionInput{RequestID: created.ID, Actor: adminActor})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), DecisionInput{RequestID: created.ID, Actor: adminActor})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = svc.Reject(context.Background(), DecisionInput{RequestID: created.ID, Actor: adminActor})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	one := 1
	_, err = svc.EditPending(context.Background(), EditInput{
		RequestID: created.ID,
		Actor:     adminActor,
		Patches:   []LinePatch{{LineID: created.Lines[0].ID, Quantity: &one}},
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	err = svc.DeletePending(context.Background(), DecisionInput{RequestID: created.ID, Actor: adminActor})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	// double-approve only deducted once
	assert.Equal(t, 8, toolQuantity(t, db, hammer.ID))
}

func TestServiceEditPending_patchesLinesByID(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 10)
	drill := createTool(t, db, "Drill", 10)

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{
			{ToolID: hammer.ID, Quantity: 2},
			{ToolID: drill.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	byTool := map[uuid.UUID]models.RequestedTool{}
	for _, line := range created.Lines {
		byTool[line.ToolID] = line
	}
	hammerLine := byTool[hammer.ID]
	drillLine := byTool[drill.ID]

	four := 4
	rejected := enums.RequestStatusRejected
	updated, err := svc.EditPending(context.Background(), EditInput{
		RequestID: created.ID,
		Actor:     Actor{UserID: admin.ID, Role: enums.RoleAdmin},
		Patches: []LinePatch{
			{LineID: hammerLine.ID, Quantity: &four},
			{LineID: drillLine.ID, Status: &rejected},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 2)
	assert.Equal(t, enums.RequestStatusPending, updated.Status)

	afterByID := map[uuid.UUID]models.RequestedTool{}
	for _, line := range updated.Lines {
		afterByID[line.ID] = line
	}

	// line identities survive an edit
	require.Contains(t, afterByID, hammerLine.ID)
	require.Contains(t, afterByID, drillLine.ID)

	assert.Equal(t, 4, afterByID[hammerLine.ID].Quantity)
	assert.Equal(t, enums.RequestStatusPending, afterByID[hammerLine.ID].Status)
	assert.Equal(t, 3, afterByID[drillLine.ID].Quantity)
	assert.Equal(t, enums.RequestStatusRejected, afterByID[drillLine.ID].Status)

	// stock untouched
	assert.Equal(t, 10, toolQuantity(t, db, hammer.ID))
	assert.Equal(t, 10, toolQuantity(t, db, drill.ID))
}

func TestServiceEditPending_unknownLineIDWritesNothing(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 10)

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{{ToolID: hammer.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// the valid first patch must not land when the second names a foreign line
	nine := 9
	_, err = svc.EditPending(context.Background(), EditInput{
		RequestID: created.ID,
		Actor:     Actor{UserID: admin.ID, Role: enums.RoleAdmin},
		Patches: []LinePatch{
			{LineID: created.Lines[0].ID, Quantity: &nine},
			{LineID: uuid.New(), Quantity: &nine},
		},
	})
	requireCode(t, err, pkgerrors.CodeNotFound)

	var line models.RequestedTool
	require.NoError(t, db.Where("id = ?", created.Lines[0].ID).First(&line).Error)
	assert.Equal(t, 2, line.Quantity)
}

func TestServiceEditPending_validation(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 10)
	adminActor := Actor{UserID: admin.ID, Role: enums.RoleAdmin}

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{{ToolID: hammer.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	lineID := created.Lines[0].ID

	_, err = svc.EditPending(context.Background(), EditInput{RequestID: created.ID, Actor: adminActor})
	requireCode(t, err, pkgerrors.CodeValidation)

	zero := 0
	_, err = svc.EditPending(context.Background(), EditInput{
		RequestID: created.ID,
		Actor:     adminActor,
		Patches:   []LinePatch{{LineID: lineID, Quantity: &zero}},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	bogus := enums.RequestStatus("Bogus")
	_, err = svc.EditPending(context.Background(), EditInput{
		RequestID: created.ID,
		Actor:     adminActor,
		Patches:   []LinePatch{{LineID: lineID, Status: &bogus}},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	one := 1
	_, err = svc.EditPending(context.Background(), EditInput{
		RequestID: created.ID,
		Actor:     adminActor,
		Patches:   []LinePatch{{Quantity: &one}},
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceDeletePending_removesRequestAndLines(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 10)

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
		Lines: []RequestLine{{ToolID: hammer.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	err = svc.DeletePending(context.Background(), DecisionInput{
		RequestID: created.ID,
		Actor:     Actor{UserID: admin.ID, Role: enums.RoleAdmin},
	})
	require.NoError(t, err)

	var headerCount, lineCount int64
	require.NoError(t, db.Model(&models.Request{}).Count(&headerCount).Error)
	require.NoError(t, db.Model(&models.RequestedTool{}).Count(&lineCount).Error)
	assert.Zero(t, headerCount)
	assert.Zero(t, lineCount)

	assert.Equal(t, 10, toolQuantity(t, db, hammer.ID))
}

func TestServiceAdminOps_requireAdminRole(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	hammer := createTool(t, db, "Hammer", 10)
	userActor := Actor{UserID: requester.ID, Role: enums.RoleUser}

	created, err := svc.Create(context.Background(), CreateInput{
		Actor: userActor,
		Lines: []RequestLine{{ToolID: hammer.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), DecisionInput{RequestID: created.ID, Actor: userActor})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = svc.Reject(context.Background(), DecisionInput{RequestID: created.ID, Actor: userActor})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = svc.ListAll(context.Background(), ListAllInput{Actor: userActor})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestServiceListAll_statusFilterAndPagination(t *testing.T) {
	db := setupRequestsTestDB(t)
	svc := newRequestsService(t, db, time.Now().UTC())

	requester := createUser(t, db, enums.RoleUser)
	admin := createUser(t, db, enums.RoleAdmin)
	hammer := createTool(t, db, "Hammer", 100)
	adminActor := Actor{UserID: admin.ID, Role: enums.RoleAdmin}

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created, err := svc.Create(context.Background(), CreateInput{
			Actor: Actor{UserID: requester.ID, Role: enums.RoleUser},
			Lines: []RequestLine{{ToolID: hammer.ID, Quantity: 1}},
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
		// distinct created_at for stable cursor ordering
		require.NoError(t, db.Model(&models.Request{}).
			Where("id = ?", created.ID).
			Update("created_at", time.Now().UTC().Add(time.Duration(i)*time.Second)).Error)
	}

	_, err := svc.Approve(context.Background(), DecisionInput{RequestID: ids[0], Actor: adminActor})
	require.NoError(t, err)

	pending, err := svc.ListAll(context.Background(), ListAllInput{Actor: adminActor, Status: "Pending"})
	require.NoError(t, err)
	assert.Len(t, pending.Items, 2)

	// unknown filter falls back to all
	all, err := svc.ListAll(context.Background(), ListAllInput{Actor: adminActor, Status: "bogus"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)

	firstPage, err := svc.ListAll(context.Background(), ListAllInput{
		Actor:      adminActor,
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, firstPage.Items, 2)
	require.NotNil(t, firstPage.NextCursor)

	secondPage, err := svc.ListAll(context.Background(), ListAllInput{
		Actor:      adminActor,
		Pagination: pagination.Params{Limit: 2, Cursor: *firstPage.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, secondPage.Items, 1)
	assert.Nil(t, secondPage.NextCursor)

	_, err = svc.ListAll(context.Background(), ListAllInput{
		Actor:      adminActor,
		Pagination: pagination.Params{Cursor: "!!not-a-cursor!!"},
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code())
	return typed
}
