// Package loans implements equipment lending and return.
package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
)

// ErrLoanNotFound is returned for an unknown loan ID.
var ErrLoanNotFound = errors.New("loan not found")

// ErrAssetOnLoan is returned when lending an asset that already has an
// active loan.
var ErrAssetOnLoan = errors.New("asset is already on loan")

// ErrAlreadyReturned is returned when returning a loan twice.
var ErrAlreadyReturned = errors.New("loan already returned")

// Repository defines the persistence the lending screens need.
type Repository interface {
	InsertLoan(ctx context.Context, loan models.Loan) error
	UpdateLoan(ctx context.Context, loan models.Loan) error
	FindLoan(ctx context.Context, id string) (models.Loan, error)
	FindActiveLoanByAsset(ctx context.Context, assetID string) (models.Loan, bool, error)
	ListLoans(ctx context.Context, activeOnly bool) ([]models.Loan, error)
}

// Notifier pushes overdue reminders to an external collaborator.
type Notifier interface {
	NotifyOverdueLoan(ctx context.Context, loan models.Loan) error
}

// LendRequest carries the fields of a new loan.
type LendRequest struct {
	AssetID    string     `json:"assetId" binding:"required"`
	AssetNo    string     `json:"assetNo"`
	Borrower   string     `json:"borrower" binding:"required"`
	Department string     `json:"department"`
	DueAt      *time.Time `json:"dueAt"`
	Note       string     `json:"note"`
}

// Service implements lending and return.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a loan service instance. notifier may be nil.
func NewService(repo Repository, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// Lend checks the asset out. An asset can carry only one active loan.
func (s *Service) Lend(ctx context.Context, req LendRequest) (models.Loan, error) {
	if _, active, err := s.repo.FindActiveLoanByAsset(ctx, req.AssetID); err != nil {
		return models.Loan{}, fmt.Errorf("check active loan: %w", err)
	} else if active {
		return models.Loan{}, ErrAssetOnLoan
	}

	loan := models.Loan{
		ID:         uuid.NewString(),
		AssetID:    req.AssetID,
		AssetNo:    req.AssetNo,
		Borrower:   req.Borrower,
		Department: req.Department,
		BorrowedAt: s.now(),
		DueAt:      req.DueAt,
		Note:       req.Note,
	}
	if err := s.repo.InsertLoan(ctx, loan); err != nil {
		return models.Loan{}, fmt.Errorf("insert loan: %w", err)
	}
	s.logger.Info("asset lent",
		zap.String("loan_id", loan.ID), zap.String("asset_id", loan.AssetID))
	return loan, nil
}

// Return checks the asset back in.
func (s *Service) Return(ctx context.Context, id, returnedBy string) (models.Loan, error) {
	loan, err := s.repo.FindLoan(ctx, id)
	if err != nil {
		return models.Loan{}, err
	}
	if !loan.Active() {
		return models.Loan{}, ErrAlreadyReturned
	}
	now := s.now()
	loan.ReturnedAt = &now
	loan.ReturnedBy = returnedBy
	if err := s.repo.UpdateLoan(ctx, loan); err != nil {
		return models.Loan{}, fmt.Errorf("update loan: %w", err)
	}
	s.logger.Info("asset returned",
		zap.String("loan_id", loan.ID), zap.String("asset_id", loan.AssetID))
	return loan, nil
}

// List returns loans, optionally only the active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.Loan, error) {
	return s.repo.ListLoans(ctx, activeOnly)
}

// RemindOverdue notifies the webhook about every overdue loan and returns
// how many reminders went out. The scheduler calls this on its cron.
func (s *Service) RemindOverdue(ctx context.Context) (int, error) {
	active, err := s.repo.ListLoans(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("list active loans: %w", err)
	}
	now := s.now()
	sent := 0
	for _, loan := range active {
		if !loan.Overdue(now) {
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyOverdueLoan(ctx, loan); err != nil {
				s.logger.Warn("failed sending overdue reminder",
					zap.Error(err), zap.String("loan_id", loan.ID))
				continue
			}
		}
		sent++
	}
	return sent, nil
}
