package records

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultLookback bounds the existence probe used by Create and
	// Delete. Long enough to catch same-session duplicates, short
	// enough to bound query cost. Points older than this are invisible
	// to the probe.
	DefaultLookback = 5 * time.Minute

	// DefaultListWindow is the trailing range returned by ListRecent.
	DefaultListWindow = time.Hour
)

// Service implements the record operations against a Store. It holds no
// mutable state of its own; every operation is an independent
// check-then-act against the external store, so Service is safe for
// concurrent use.
type Service struct {
	store      Store
	lookback   time.Duration
	listWindow time.Duration
	logger     *slog.Logger
}

// NewService creates a Service. Non-positive windows fall back to the
// defaults. A nil logger falls back to slog.Default().
func NewService(store Store, lookback, listWindow time.Duration, logger *slog.Logger) *Service {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if listWindow <= 0 {
		listWindow = DefaultListWindow
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:      store,
		lookback:   lookback,
		listWindow: listWindow,
		logger:     logger,
	}
}

// Create writes a new record if no point for key is visible within the
// lookback window. The probe and the append are not atomic: a
// concurrent create for the same key can slip between them.
func (s *Service) Create(ctx context.Context, key string, value float64) (Record, error) {
	if key == "" {
		return Record{}, &InvalidInputError{Reason: "id must not be empty"}
	}

	found, err := s.store.FindByKey(ctx, key, s.lookback)
	if err != nil {
		return Record{}, &StoreUnavailableError{Op: "create", Err: err}
	}
	if found {
		return Record{}, &DuplicateKeyError{Key: key}
	}

	observedAt, err := s.store.Append(ctx, key, value)
	if err != nil {
		return Record{}, &StoreUnavailableError{Op: "create", Err: err}
	}

	s.logger.Debug("record created", "key", key, "value", value)
	return Record{Key: key, Value: value, ObservedAt: observedAt}, nil
}

// ListRecent returns every point in the trailing list window, one
// Record per point. Keys overwritten by Update appear once per write;
// callers see the raw shape of the series.
func (s *Service) ListRecent(ctx context.Context) ([]Record, error) {
	points, err := s.store.ListWindow(ctx, s.listWindow)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "list", Err: err}
	}

	recs := make([]Record, 0, len(points))
	for _, p := range points {
		recs = append(recs, Record{Key: p.Key, Value: p.Value, ObservedAt: p.Time})
	}

	s.logger.Debug("listed records", "window", s.listWindow, "count", len(recs))
	return recs, nil
}

// Update appends a new point under key without probing for prior
// existence. Updating a key that was never created creates it. The
// asymmetry with Create is deliberate: PUT is overwrite-by-append.
func (s *Service) Update(ctx context.Context, key string, value float64) (Record, error) {
	if key == "" {
		return Record{}, &InvalidInputError{Reason: "id must not be empty"}
	}

	observedAt, err := s.store.Append(ctx, key, value)
	if err != nil {
		return Record{}, &StoreUnavailableError{Op: "update", Err: err}
	}

	s.logger.Debug("record updated", "key", key, "value", value)
	return Record{Key: key, Value: value, ObservedAt: observedAt}, nil
}

// Delete purges all historical points under key, gated on the key being
// visible within the lookback window. A key whose only points are older
// than the window reports NotFoundError even though a purge would have
// removed them; the narrow probe and the full-history purge are
// intentionally mismatched to preserve observed behavior.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return &InvalidInputError{Reason: "id must not be empty"}
	}

	found, err := s.store.FindByKey(ctx, key, s.lookback)
	if err != nil {
		return &StoreUnavailableError{Op: "delete", Err: err}
	}
	if !found {
		return &NotFoundError{Key: key}
	}

	if err := s.store.Purge(ctx, key); err != nil {
		return &StoreUnavailableError{Op: "delete", Err: err}
	}

	s.logger.Debug("record deleted", "key", key)
	return nil
}
