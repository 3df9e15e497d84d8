package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
	"github.com/hifravl/toolstock-backend/pkg/metrics"
	"github.com/hifravl/toolstock-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor identifies who invokes an operation and with which capability.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// RequestLine is a single tool/quantity pair supplied by callers.
type RequestLine struct {
	ToolID   uuid.UUID
	Quantity int
}

// CreateInput captures the data needed to open a request.
type CreateInput struct {
	Actor Actor
	Lines []RequestLine
}

// DecisionInput carries an approve/reject action on a pending request.
type DecisionInput struct {
	RequestID uuid.UUID
	Actor     Actor
}

// LinePatch targets one existing line of a pending request by id. Nil fields
// are left untouched.
type LinePatch struct {
	LineID   uuid.UUID
	Quantity *int
	Status   *enums.RequestStatus
}

// EditInput carries per-line patches for a pending request.
type EditInput struct {
	RequestID uuid.UUID
	Actor     Actor
	Patches   []LinePatch
}

// ListAllInput captures the admin listing parameters.
type ListAllInput struct {
	Actor      Actor
	Pagination pagination.Params
	Status     string
}

// StockShortfall describes one line that cannot be satisfied from stock.
type StockShortfall struct {
	ToolID    uuid.UUID `json:"tool_id"`
	ToolName  string    `json:"tool_name"`
	Requested int       `json:"requested"`
	InStock   int       `json:"in_stock"`
}

// Service defines the reconciliation operations on tool requests.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Request, error)
	ListOwn(ctx context.Context, actor Actor) ([]models.Request, error)
	ListAll(ctx context.Context, input ListAllInput) (*RequestList, error)
	Approve(ctx context.Context, input DecisionInput) (*models.Request, error)
	Reject(ctx context.Context, input DecisionInput) (*models.Request, error)
	EditPending(ctx context.Context, input EditInput) (*models.Request, error)
	DeletePending(ctx context.Context, input DecisionInput) error
}

type service struct {
	repo    Repository
	tx      txRunner
	clock   Clock
	metrics *metrics.DecisionMetrics
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// NewService builds the request service with the required dependencies.
func NewService(repo Repository, tx txRunner, clock Clock, decisions *metrics.DecisionMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if clock == nil {
		clock = realClock{}
	}
	return &service{
		repo:    repo,
		tx:      tx,
		clock:   clock,
		metrics: decisions,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Request, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	var created *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := ensureToolsExist(ctx, repo, input.Lines); err != nil {
			return err
		}

		request := &models.Request{
			ID:            uuid.New(),
			RequesterID:   input.Actor.UserID,
			Status:        enums.RequestStatusPending,
			DateRequested: s.clock.Now(),
		}
		for _, line := range input.Lines {
			request.Lines = append(request.Lines, models.RequestedTool{
				ID:       uuid.New(),
				ToolID:   line.ToolID,
				Quantity: line.Quantity,
				Status:   enums.RequestStatusPending,
			})
		}

		saved, err := repo.CreateRequest(ctx, request)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}
		created = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) ListOwn(ctx context.Context, actor Actor) ([]models.Request, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	items, err := s.repo.ListByRequester(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return items, nil
}

func (s *service) ListAll(ctx context.Context, input ListAllInput) (*RequestList, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}

	filters := ListFilters{}
	if status, err := enums.ParseRequestStatus(input.Status); err == nil {
		filters.Status = &status
	}

	// A cursor the client mangled is their error, not a storage failure.
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	list, err := s.repo.ListAll(ctx, input.Pagination, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list all requests")
	}
	return list, nil
}

// Approve validates every line against current stock, then deducts via guarded
// updates inside one transaction. Either all lines deduct or none do.
func (s *service) Approve(ctx context.Context, input DecisionInput) (*models.Request, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	started := s.clock.Now()
	var approved *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := loadPending(ctx, repo, input.RequestID)
		if err != nil {
			return err
		}

		shortfalls, err := collectShortfalls(ctx, repo, request.Lines)
		if err != nil {
			return err
		}
		if len(shortfalls) > 0 {
			return insufficientStock(shortfalls)
		}

		// Re-validate under the transaction: the guard can still fail when a
		// competing approval committed between the read and this write.
		for _, line := range request.Lines {
			ok, err := repo.DeductToolQuantity(ctx, line.ToolID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct stock")
			}
			if !ok {
				inStock, qErr := repo.FindToolQuantity(ctx, line.ToolID)
				if qErr != nil {
					inStock = 0
				}
				return insufficientStock([]StockShortfall{{
					ToolID:    line.ToolID,
					ToolName:  lineToolName(line),
					Requested: line.Quantity,
					InStock:   inStock,
				}})
			}
		}

		now := s.clock.Now()
		updates := map[string]any{
			"status":        enums.RequestStatusApproved,
			"date_approved": now,
			"approver_id":   input.Actor.UserID,
		}
		if err := repo.UpdateRequest(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if err := repo.UpdateLineStatuses(ctx, request.ID, enums.RequestStatusApproved); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line statuses")
		}

		request.Status = enums.RequestStatusApproved
		request.DateApproved = &now
		request.ApproverID = &input.Actor.UserID
		for i := range request.Lines {
			request.Lines[i].Status = enums.RequestStatusApproved
		}
		approved = request
		return nil
	})

	duration := s.clock.Now().Sub(started)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			s.metrics.IncStockConflict()
			s.metrics.ObserveApproveDuration("stock_conflict", duration)
		} else {
			s.metrics.ObserveApproveDuration("error", duration)
		}
		return nil, err
	}

	s.metrics.IncApproval()
	s.metrics.ObserveApproveDuration("approved", duration)
	return approved, nil
}

// Reject finalizes a pending request without touching stock.
func (s *service) Reject(ctx context.Context, input DecisionInput) (*models.Request, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var rejected *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := loadPending(ctx, repo, input.RequestID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		updates := map[string]any{
			"status":        enums.RequestStatusRejected,
			"date_rejected": now,
			"approver_id":   input.Actor.UserID,
		}
		if err := repo.UpdateRequest(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if err := repo.UpdateLineStatuses(ctx, request.ID, enums.RequestStatusRejected); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line statuses")
		}

		request.Status = enums.RequestStatusRejected
		request.DateRejected = &now
		request.ApproverID = &input.Actor.UserID
		for i := range request.Lines {
			request.Lines[i].Status = enums.RequestStatusRejected
		}
		rejected = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRejection()
	return rejected, nil
}

// EditPending applies per-line patches to a request that has not been
// decided. Every patch must name an existing line of that request; the full
// patch set is validated before any line is written. Stock is never touched.
func (s *service) EditPending(ctx context.Context, input EditInput) (*models.Request, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if err := validatePatches(input.Patches); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := loadPending(ctx, repo, input.RequestID)
		if err != nil {
			return err
		}

		known := make(map[uuid.UUID]struct{}, len(request.Lines))
		for _, line := range request.Lines {
			known[line.ID] = struct{}{}
		}
		for _, patch := range input.Patches {
			if _, ok := known[patch.LineID]; !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("line %s not found on this request", patch.LineID))
			}
		}

		for _, patch := range input.Patches {
			updates := map[string]any{}
			if patch.Quantity != nil {
				updates["quantity"] = *patch.Quantity
			}
			if patch.Status != nil {
				updates["status"] = *patch.Status
			}
			if len(updates) == 0 {
				continue
			}
			if err := repo.UpdateLine(ctx, patch.LineID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request line")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindRequest(ctx, input.RequestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload request")
	}
	return updated, nil
}

// DeletePending removes an undecided request together with its lines.
func (s *service) DeletePending(ctx context.Context, input DecisionInput) error {
	if err := requireAdmin(input.Actor); err != nil {
		return err
	}
	if input.RequestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := loadPending(ctx, repo, input.RequestID)
		if err != nil {
			return err
		}
		if err := repo.DeleteRequest(ctx, request.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete request")
		}
		return nil
	})
}

func requireAdmin(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func validatePatches(patches []LinePatch) error {
	if len(patches) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line patch required")
	}
	for _, patch := range patches {
		if patch.LineID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line id required on every patch")
		}
		if patch.Quantity != nil && *patch.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if patch.Status != nil && !patch.Status.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid line status")
		}
	}
	return nil
}

func validateLines(lines []RequestLine) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.ToolID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "tool id required on every line")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if _, dup := seen[line.ToolID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate tool line")
		}
		seen[line.ToolID] = struct{}{}
	}
	return nil
}

func ensureToolsExist(ctx context.Context, repo Repository, lines []RequestLine) error {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ToolID)
	}
	tools, err := repo.FindToolsByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tools")
	}
	if len(tools) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "one or more tools not found")
	}
	return nil
}

func loadPending(ctx context.Context, repo Repository, id uuid.UUID) (*models.Request, error) {
	request, err := repo.FindRequest(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	if request.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request already decided")
	}
	return request, nil
}

// collectShortfalls reads current stock for every line and reports each line
// that cannot be satisfied, so callers see the full set in one response.
func collectShortfalls(ctx context.Context, repo Repository, lines []models.RequestedTool) ([]StockShortfall, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ToolID)
	}
	tools, err := repo.FindToolsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tools")
	}

	byID := make(map[uuid.UUID]models.Tool, len(tools))
	for _, tool := range tools {
		byID[tool.ID] = tool
	}

	var shortfalls []StockShortfall
	for _, line := range lines {
		tool, ok := byID[line.ToolID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "requested tool no longer exists")
		}
		if tool.Quantity < line.Quantity {
			shortfalls = append(shortfalls, StockShortfall{
				ToolID:    tool.ID,
				ToolName:  tool.Name,
				Requested: line.Quantity,
				InStock:   tool.Quantity,
			})
		}
	}
	return shortfalls, nil
}

func insufficientStock(shortfalls []StockShortfall) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for request").
		WithDetails(shortfalls)
}

func lineToolName(line models.RequestedTool) string {
	if line.Tool != nil {
		return line.Tool.Name
	}
	return ""
}
