// Package assets backs the asset search screens: master lookup with the
// shared predicate engine and saved column-visibility bookmarks.
package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/store"
)

// ErrBookmarkNotFound is returned when deleting an unknown bookmark.
var ErrBookmarkNotFound = errors.New("bookmark not found")

// Repository defines the persistence the asset screens need.
type Repository interface {
	ListAssets(ctx context.Context) ([]models.Asset, error)
	InsertBookmark(ctx context.Context, bookmark models.ColumnBookmark) error
	ListBookmarks(ctx context.Context) ([]models.ColumnBookmark, error)
	DeleteBookmark(ctx context.Context, id string) error
}

// Query narrows an asset search. Empty fields mean no constraint; the
// keyword is a case-insensitive substring scan, same as the matching
// screens.
type Query struct {
	Category       string `form:"category"`
	Department     string `form:"department"`
	Section        string `form:"section"`
	MajorCategory  string `form:"majorCategory"`
	MiddleCategory string `form:"middleCategory"`
	Keyword        string `form:"keyword"`
}

func (q Query) filterState() models.FilterState {
	return models.FilterState{
		Category:       q.Category,
		Department:     q.Department,
		Section:        q.Section,
		MajorCategory:  q.MajorCategory,
		MiddleCategory: q.MiddleCategory,
		MatchingStatus: models.FilterStatusAll,
		Keyword:        q.Keyword,
	}
}

// Service implements the asset screens' operations.
type Service struct {
	repo   Repository
	shared *store.SharedState
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires an asset service instance.
func NewService(repo Repository, shared *store.SharedState, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, shared: shared, logger: logger, now: time.Now}
}

// Search returns the asset-master rows passing the query predicates.
func (s *Service) Search(ctx context.Context, q Query) ([]models.Asset, error) {
	all, err := s.repo.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	f := q.filterState()
	out := make([]models.Asset, 0, len(all))
	for _, a := range all {
		if f.Matches(a.MatchableRecord()) {
			out = append(out, a)
		}
	}
	return out, nil
}

// SaveBookmark stores a column preset and refreshes the shared snapshot the
// windows read on mount.
func (s *Service) SaveBookmark(ctx context.Context, name string, columns []string) (models.ColumnBookmark, error) {
	if name == "" {
		return models.ColumnBookmark{}, errors.New("bookmark name is required")
	}
	bookmark := models.ColumnBookmark{
		ID:             uuid.NewString(),
		Name:           name,
		VisibleColumns: append([]string(nil), columns...),
		CreatedAt:      s.now(),
	}
	if err := s.repo.InsertBookmark(ctx, bookmark); err != nil {
		return models.ColumnBookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}
	s.syncBookmarkSnapshot(ctx)
	return bookmark, nil
}

// Bookmarks lists the saved presets.
func (s *Service) Bookmarks(ctx context.Context) ([]models.ColumnBookmark, error) {
	return s.repo.ListBookmarks(ctx)
}

// DeleteBookmark removes a preset.
func (s *Service) DeleteBookmark(ctx context.Context, id string) error {
	if err := s.repo.DeleteBookmark(ctx, id); err != nil {
		return err
	}
	s.syncBookmarkSnapshot(ctx)
	return nil
}

func (s *Service) syncBookmarkSnapshot(ctx context.Context) {
	if s.shared == nil {
		return
	}
	bookmarks, err := s.repo.ListBookmarks(ctx)
	if err != nil {
		s.logger.Warn("failed refreshing bookmark snapshot", zap.Error(err))
		return
	}
	if _, err := s.shared.Put(store.KeyBookmarks, bookmarks); err != nil {
		s.logger.Warn("failed writing bookmark snapshot", zap.Error(err))
	}
}
