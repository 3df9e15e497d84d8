package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Clock supplies the current time so usage timestamps are testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Actor identifies who is performing a usage operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// RecordInput is a single consumption event against a user's allowance.
type RecordInput struct {
	ToolID   uuid.UUID
	Quantity int
}

// Allowance reports how much of a tool a user may still consume. Approved is
// the total granted across approved request lines, Used what has been logged.
type Allowance struct {
	ToolID    uuid.UUID `json:"tool_id"`
	Approved  int       `json:"approved"`
	Used      int       `json:"used"`
	Available int       `json:"available"`
}

// Service defines usage tracking operations.
type Service interface {
	Record(ctx context.Context, actor Actor, input RecordInput) (*models.ToolUsage, error)
	AllowanceFor(ctx context.Context, actor Actor, toolID uuid.UUID) (*Allowance, error)
	HistoryForTool(ctx context.Context, actor Actor, toolID uuid.UUID) ([]models.ToolUsage, error)
	OwnHistory(ctx context.Context, actor Actor) ([]models.ToolUsage, error)
}

type service struct {
	repo  *Repository
	tx    txRunner
	clock Clock
}

// NewService builds the usage service.
func NewService(repo *Repository, tx txRunner, clock Clock) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if clock == nil {
		clock = realClock{}
	}
	return &service{repo: repo, tx: tx, clock: clock}, nil
}

// Record logs consumption against the actor's approved allowance. The tool
// row is locked before the allowance sums are read, so concurrent records
// serialize on the tool and each check sees every prior committed insert.
func (s *service) Record(ctx context.Context, actor Actor, input RecordInput) (*models.ToolUsage, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ToolID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tool id is required")
	}

	var created *models.ToolUsage
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockTool(ctx, input.ToolID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock tool")
		}
		if !locked {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
		}

		allowance, err := computeAllowance(ctx, repo, actor.UserID, input.ToolID)
		if err != nil {
			return err
		}
		if input.Quantity > allowance.Available {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "usage exceeds approved allowance").
				WithDetails(allowance)
		}

		record := &models.ToolUsage{
			ID:           uuid.New(),
			ToolID:       input.ToolID,
			UserID:       actor.UserID,
			QuantityUsed: input.Quantity,
			DateUsed:     s.clock.Now(),
		}
		created, err = repo.CreateUsage(ctx, record)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create usage record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AllowanceFor reports the actor's remaining balance for one tool.
func (s *service) AllowanceFor(ctx context.Context, actor Actor, toolID uuid.UUID) (*Allowance, error) {
	if _, err := s.repo.FindTool(ctx, toolID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tool")
	}
	return computeAllowance(ctx, s.repo, actor.UserID, toolID)
}

// HistoryForTool returns every consumption record for a tool. Admin only.
func (s *service) HistoryForTool(ctx context.Context, actor Actor, toolID uuid.UUID) ([]models.ToolUsage, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if _, err := s.repo.FindTool(ctx, toolID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tool")
	}
	records, err := s.repo.ListByTool(ctx, toolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tool usage")
	}
	return records, nil
}

// OwnHistory returns the actor's consumption records.
func (s *service) OwnHistory(ctx context.Context, actor Actor) ([]models.ToolUsage, error) {
	records, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list own usage")
	}
	return records, nil
}

func computeAllowance(ctx context.Context, repo *Repository, userID, toolID uuid.UUID) (*Allowance, error) {
	approved, err := repo.SumApprovedQuantity(ctx, userID, toolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum approved quantity")
	}
	used, err := repo.SumUsedQuantity(ctx, userID, toolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum used quantity")
	}
	return &Allowance{
		ToolID:    toolID,
		Approved:  approved,
		Used:      used,
		Available: approved - used,
	}, nil
}
