// Package catalog owns the authoritative in-memory list of tapes and
// mediates every write to storage. Each mutation is a single storage write
// followed by a full reload, so readers never observe a list that disagrees
// with what is durably stored.
package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/tape"
)

// ErrNotReloaded is joined to the reload error when a mutation reached
// storage but the follow-up reload failed. The loaded list is stale and
// repeating the call would write again.
var ErrNotReloaded = stderrors.New("written but not reloaded")

// Storage is the durable persistence boundary the catalog writes through.
type Storage interface {
	// ListAll returns every stored tape ordered by id descending.
	ListAll(ctx context.Context) ([]tape.Tape, error)
	// Insert stores a new tape; storage assigns the id and creation time.
	Insert(ctx context.Context, title, label string) (int64, error)
	// Update replaces title and label. A missing id is NOT_FOUND.
	Update(ctx context.Context, id int64, title, label string) error
	// Delete removes a tape. A missing id is NOT_FOUND.
	Delete(ctx context.Context, id int64) error
	// InsertBatch stores imported tapes all-or-nothing.
	InsertBatch(ctx context.Context, tapes []tape.Tape) error
}

// Options configures a Catalog.
type Options struct {
	Logger zerolog.Logger

	// ExportsDir is the default directory for export files and the one
	// directory import/export paths may always use.
	ExportsDir string
}

// Catalog is the single owner of the loaded record list.
// It is safe for concurrent use; mutations are serialised.
type Catalog struct {
	store      Storage
	log        zerolog.Logger
	exportsDir string

	mu      sync.RWMutex
	records []tape.Tape // replaced wholesale, never modified in place
}

// New creates a Catalog over store and performs the initial reload.
func New(ctx context.Context, store Storage, opts Options) (*Catalog, error) {
	c := &Catalog{
		store:      store,
		log:        opts.Logger.With().Str("component", "catalog").Logger(),
		exportsDir: opts.ExportsDir,
		records:    []tape.Tape{},
	}
	if _, err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces the in-memory list with the current storage contents.
// On failure the previous list is kept and the error returned.
func (c *Catalog) Reload(ctx context.Context) ([]tape.Tape, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reloadLocked(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(c.records), nil
}

func (c *Catalog) reloadLocked(ctx context.Context) error {
	records, err := c.store.ListAll(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("reload failed, keeping previous list")
		return err
	}
	if records == nil {
		records = []tape.Tape{}
	}
	c.records = records
	c.log.Debug().Int("count", len(records)).Msg("catalog reloaded")
	return nil
}

// reloadAfterWrite is reloadLocked for callers whose write already
// succeeded.
func (c *Catalog) reloadAfterWrite(ctx context.Context) error {
	if err := c.reloadLocked(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReloaded, err)
	}
	return nil
}

// Add validates and stores a new tape, then reloads.
// If the tape was stored but the reload failed, the error wraps
// ErrNotReloaded and the tape must not be added again.
func (c *Catalog) Add(ctx context.Context, title, label string) error {
	title, label, err := validate(title, label)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.store.Insert(ctx, title, label)
	if err != nil {
		c.log.Error().Err(err).Str("title", title).Msg("add failed")
		return err
	}
	c.log.Info().Int64("id", id).Str("title", title).Str("tape", label).Msg("tape added")

	return c.reloadAfterWrite(ctx)
}

// Edit validates and replaces the title and label of tape id, then reloads.
// A failed reload after the update wraps ErrNotReloaded.
func (c *Catalog) Edit(ctx context.Context, id int64, title, label string) error {
	title, label, err := validate(title, label)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Update(ctx, id, title, label); err != nil {
		c.logWriteFailure(err, id, "edit")
		return err
	}
	c.log.Info().Int64("id", id).Str("title", title).Str("tape", label).Msg("tape edited")

	return c.reloadAfterWrite(ctx)
}

// Delete removes tape id, then reloads.
// A failed reload after the delete wraps ErrNotReloaded.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, id); err != nil {
		c.logWriteFailure(err, id, "delete")
		return err
	}
	c.log.Info().Int64("id", id).Msg("tape deleted")

	return c.reloadAfterWrite(ctx)
}

// logWriteFailure logs a stale id at warn and anything else at error.
func (c *Catalog) logWriteFailure(err error, id int64, op string) {
	ev := c.log.Error()
	if errors.Is(err, errors.ErrNotFound) {
		ev = c.log.Warn()
	}
	ev.Err(err).Int64("id", id).Msg(op + " failed")
}

// CurrentRecord looks id up in the loaded list. A false result means the
// selection is no longer valid, not that something went wrong.
func (c *Catalog) CurrentRecord(id int64) (tape.Tape, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.records {
		if t.ID == id {
			return t, true
		}
	}
	return tape.Tape{}, false
}

// Records returns a copy of the loaded list, most recent first.
func (c *Catalog) Records() []tape.Tape {
	return slices.Clone(c.snapshot())
}

// snapshot returns the current list without copying. Callers must not
// modify it.
func (c *Catalog) snapshot() []tape.Tape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records
}

// Count returns the number of loaded records.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Status returns the summary line shown under the list.
func (c *Catalog) Status() string {
	return StatusText(c.Count())
}

// StatusText formats the summary line for n records.
func StatusText(n int) string {
	return fmt.Sprintf("%d films référencés", n)
}

// validate cleans both fields and rejects empty ones before storage is touched.
func validate(title, label string) (string, string, error) {
	title = tape.CleanField(title)
	label = tape.CleanField(label)
	if title == "" {
		return "", "", errors.NewEmptyField("title")
	}
	if label == "" {
		return "", "", errors.NewEmptyField("tape")
	}
	return title, label, nil
}
