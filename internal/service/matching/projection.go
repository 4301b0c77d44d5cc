package matching

import (
	"errors"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/hub"
)

// ErrUnknownView is returned for a view name other than unmatched/matched.
var ErrUnknownView = errors.New("unknown view")

// View selects which partition projection to render.
type View string

const (
	ViewUnmatched View = "unmatched"
	ViewMatched   View = "matched"
)

// Records computes the session's visible rows: the requested partition
// filtered by the shared predicate set, and, for the unmatched view, further
// refined by the active match filter against the unmatched counterpart
// partition.
func (s *Service) Records(id string, view View) ([]models.MatchableRecord, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	var base []models.MatchableRecord
	switch view {
	case ViewUnmatched:
		base = sess.records.Unmatched()
	case ViewMatched:
		base = sess.records.Matched()
	default:
		return nil, ErrUnknownView
	}

	sess.mu.Lock()
	filters := sess.filters
	matchFilter := sess.matchFilter
	sess.mu.Unlock()

	visible := applyFilters(base, filters)

	if view == ViewUnmatched && matchFilter != models.MatchFilterNone {
		if counterpart := s.counterpartUnmatched(sess.window.Kind()); counterpart != nil {
			visible = refineByMatchFilter(visible, counterpart, matchFilter)
		}
	}
	return visible, nil
}

func applyFilters(records []models.MatchableRecord, f models.FilterState) []models.MatchableRecord {
	out := make([]models.MatchableRecord, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// refineByMatchFilter keeps only records whose chosen field value also
// occurs in the unmatched counterpart partition. Plain set membership, no
// scoring or ranking.
func refineByMatchFilter(records, counterpart []models.MatchableRecord, field models.MatchFilterField) []models.MatchableRecord {
	values := make(map[string]struct{}, len(counterpart))
	for _, r := range counterpart {
		if v := field.Value(r); v != "" {
			values[v] = struct{}{}
		}
	}
	out := make([]models.MatchableRecord, 0, len(records))
	for _, r := range records {
		if _, ok := values[field.Value(r)]; ok {
			out = append(out, r)
		}
	}
	return out
}

// counterpartUnmatched collects the unmatched rows of the counterpart
// window, if one is open: survey cross-references the ledger and the ledger
// windows cross-reference the survey. Without a counterpart window the
// refinement is skipped rather than hiding every row.
func (s *Service) counterpartUnmatched(kind hub.WindowKind) []models.MatchableRecord {
	var want hub.WindowKind
	switch kind {
	case hub.WindowMain:
		want = hub.WindowLedger
	case hub.WindowLedger, hub.WindowMELedger:
		want = hub.WindowMain
	default:
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.window.Kind() == want {
			return sess.records.Unmatched()
		}
	}
	return nil
}
