package sequence

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RunningCheck reports whether the given sequence is currently being
// replayed. Set by the wiring layer to the playback engine's check so
// the registry can reject edits during playback.
type RunningCheck func(sequenceID string) bool

// Registry provides sequence management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Sequence // Cached sequences by ID
	cacheMu sync.RWMutex         // Protects cache
	logger  Logger

	running   RunningCheck
	runningMu sync.RWMutex
}

// NewRegistry creates a new sequence registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Sequence),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetRunningCheck installs the playback engine's running check.
// While the check reports true for a sequence, Update and Delete
// return ErrRunning: steps are immutable once a run starts.
func (r *Registry) SetRunningCheck(check RunningCheck) {
	r.runningMu.Lock()
	r.running = check
	r.runningMu.Unlock()
}

// isRunning reports whether the sequence is mid-playback.
func (r *Registry) isRunning(id string) bool {
	r.runningMu.RLock()
	check := r.running
	r.runningMu.RUnlock()
	return check != nil && check(id)
}

// RefreshCache reloads all sequences from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	sequences, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading sequences: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Sequence, len(sequences))
	for i := range sequences {
		s := sequences[i]
		r.cache[s.ID] = s.DeepCopy()
	}

	r.logger.Info("sequence cache refreshed", "count", len(sequences))
	return nil
}

// Get retrieves a sequence by ID.
// The returned sequence is a deep copy; callers can safely modify it.
func (r *Registry) Get(_ context.Context, id string) (*Sequence, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrNotFound
}

// List retrieves all sequences from the cache.
// Returns deep copies sorted by name for deterministic ordering.
func (r *Registry) List(_ context.Context) ([]Sequence, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	sequences := make([]Sequence, 0, len(r.cache))
	for _, s := range r.cache {
		sequences = append(sequences, *s.DeepCopy())
	}
	sort.Slice(sequences, func(i, j int) bool {
		return sequences[i].Name < sequences[j].Name
	})
	return sequences, nil
}

// Create validates, persists, and caches a new sequence.
func (r *Registry) Create(ctx context.Context, seq *Sequence) error {
	if seq.ID == "" {
		seq.ID = GenerateID()
	}
	for i := range seq.Steps {
		if seq.Steps[i].ID == "" {
			seq.Steps[i].ID = GenerateID()
		}
	}

	if err := Validate(seq); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, seq); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[seq.ID] = seq.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("sequence created", "id", seq.ID, "name", seq.Name, "steps", len(seq.Steps))
	return nil
}

// Update validates, persists, and updates the cached sequence.
// Returns ErrRunning if the sequence is currently being replayed.
func (r *Registry) Update(ctx context.Context, seq *Sequence) error {
	if r.isRunning(seq.ID) {
		return ErrRunning
	}

	for i := range seq.Steps {
		if seq.Steps[i].ID == "" {
			seq.Steps[i].ID = GenerateID()
		}
	}

	if err := Validate(seq); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, seq); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[seq.ID] = seq.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("sequence updated", "id", seq.ID, "name", seq.Name)
	return nil
}

// Delete removes a sequence from persistence and cache.
// Returns ErrRunning if the sequence is currently being replayed.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if r.isRunning(id) {
		return ErrRunning
	}

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("sequence deleted", "id", id)
	return nil
}

// Count returns the number of cached sequences.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
