// Package applications implements the purchase, transfer and disposal
// request workflows.
package applications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
)

// ErrApplicationNotFound is returned for an unknown application ID.
var ErrApplicationNotFound = errors.New("application not found")

// ErrInvalidTransition is returned when a lifecycle move is not allowed
// from the application's current status.
var ErrInvalidTransition = errors.New("invalid application status transition")

// Repository defines the persistence the workflow needs.
type Repository interface {
	InsertApplication(ctx context.Context, app models.Application) error
	UpdateApplication(ctx context.Context, app models.Application) error
	FindApplication(ctx context.Context, id string) (models.Application, error)
	ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error)
}

// CreateRequest carries the fields of a new application.
type CreateRequest struct {
	Type         models.ApplicationType `json:"type" binding:"required"`
	AssetNo      string                 `json:"assetNo"`
	Item         string                 `json:"item" binding:"required"`
	Department   string                 `json:"department" binding:"required"`
	ToDepartment string                 `json:"toDepartment"`
	Reason       string                 `json:"reason"`
	RequestedBy  string                 `json:"requestedBy" binding:"required"`
}

// Service implements the application workflows.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires an application service instance.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Create stores a new draft application.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Application, error) {
	if !req.Type.Valid() {
		return models.Application{}, fmt.Errorf("unknown application type %q", req.Type)
	}
	if req.Type == models.ApplicationTransfer && req.ToDepartment == "" {
		return models.Application{}, errors.New("transfer applications require a destination department")
	}
	now := s.now()
	app := models.Application{
		ID:           uuid.NewString(),
		Type:         req.Type,
		Status:       models.ApplicationDraft,
		AssetNo:      req.AssetNo,
		Item:         req.Item,
		Department:   req.Department,
		ToDepartment: req.ToDepartment,
		Reason:       req.Reason,
		RequestedBy:  req.RequestedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertApplication(ctx, app); err != nil {
		return models.Application{}, fmt.Errorf("insert application: %w", err)
	}
	s.logger.Info("application created",
		zap.String("application_id", app.ID), zap.String("type", string(app.Type)))
	return app, nil
}

// Submit moves a draft into review.
func (s *Service) Submit(ctx context.Context, id string) (models.Application, error) {
	return s.transition(ctx, id, models.ApplicationSubmitted, "")
}

// Approve accepts a submitted application.
func (s *Service) Approve(ctx context.Context, id, decidedBy string) (models.Application, error) {
	return s.transition(ctx, id, models.ApplicationApproved, decidedBy)
}

// Reject declines a submitted application.
func (s *Service) Reject(ctx context.Context, id, decidedBy string) (models.Application, error) {
	return s.transition(ctx, id, models.ApplicationRejected, decidedBy)
}

func (s *Service) transition(ctx context.Context, id string, to models.ApplicationStatus, decidedBy string) (models.Application, error) {
	app, err := s.repo.FindApplication(ctx, id)
	if err != nil {
		return models.Application{}, err
	}
	if !app.Status.CanTransition(to) {
		return models.Application{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, app.Status, to)
	}
	now := s.now()
	app.Status = to
	app.UpdatedAt = now
	if to == models.ApplicationApproved || to == models.ApplicationRejected {
		app.DecidedBy = decidedBy
		app.DecidedAt = &now
	}
	if err := s.repo.UpdateApplication(ctx, app); err != nil {
		return models.Application{}, fmt.Errorf("update application: %w", err)
	}
	s.logger.Info("application transitioned",
		zap.String("application_id", app.ID), zap.String("status", string(to)))
	return app, nil
}

// List returns applications, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error) {
	return s.repo.ListApplications(ctx, status)
}
