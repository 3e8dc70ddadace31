// Package directory keeps the list of a user's past sessions and turns it
// into labelled, time-stamped entries. Selecting an entry or asking for a new
// chat closes the overlay (in the narrow layout) and forwards the intent to a
// Handler, usually the active conversation.
package directory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tailored-agentic-units/shopassist/core/protocol"
	"github.com/tailored-agentic-units/shopassist/observability"
)

// Placeholder texts shown instead of entries.
const (
	LoadingText = "Loading sessions..."
	EmptyText   = "No sessions yet"
)

// State is the loading state of the listing.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// API lists a user's sessions through the proxy.
type API interface {
	ListSessions(ctx context.Context, userID string) (protocol.SessionList, error)
}

// Handler receives navigation intents. *conversation.Conversation satisfies it.
type Handler interface {
	SelectSession(ctx context.Context, sessionID string) error
	NewSession(ctx context.Context)
}

// Entry is one displayable row of the listing.
type Entry struct {
	ID      string
	Label   string
	Updated string
	Current bool
}

// Option configures a Directory.
type Option func(*Directory)

// WithObserver overrides the default no-op observer.
func WithObserver(o observability.Observer) Option {
	return func(d *Directory) { d.observer = o }
}

// WithHandler sets the receiver of Select and New intents.
func WithHandler(h Handler) Option {
	return func(d *Directory) { d.handler = h }
}

// WithClock overrides time.Now for relative timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// WithOverlay marks the narrow layout, where the listing is an overlay that
// closes after every selection.
func WithOverlay() Option {
	return func(d *Directory) { d.overlay = true }
}

// Directory is safe for concurrent use.
type Directory struct {
	api      API
	handler  Handler
	observer observability.Observer
	now      func() time.Time
	overlay  bool

	mu       sync.RWMutex
	userID   string
	gen      uint64
	sessions []protocol.Session
	state    State
	open     bool
}

// New creates an empty Directory with no user bound.
func New(api API, opts ...Option) *Directory {
	d := &Directory{
		api:      api,
		observer: observability.NoOpObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// UserID returns the user whose sessions are listed.
func (d *Directory) UserID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.userID
}

// SetUser binds userID and fetches its sessions when it differs from the
// currently bound user.
func (d *Directory) SetUser(ctx context.Context, userID string) error {
	d.mu.Lock()
	if d.userID == userID {
		d.mu.Unlock()
		return nil
	}
	d.bindLocked(userID)
	d.mu.Unlock()

	return d.Fetch(ctx)
}

// Refresh binds userID and always fetches. Callers use it after a send
// reports a user id, since the listing may have gained a session.
func (d *Directory) Refresh(ctx context.Context, userID string) error {
	d.mu.Lock()
	d.bindLocked(userID)
	d.mu.Unlock()

	return d.Fetch(ctx)
}

// bindLocked switches to userID. Another user's list is dropped at once and
// any fetch still in flight for it is invalidated.
func (d *Directory) bindLocked(userID string) {
	if d.userID == userID {
		return
	}
	d.userID = userID
	d.gen++
	d.sessions = nil
	d.state = StateEmpty
}

// Fetch reloads the listing for the bound user. Without a user it does
// nothing. A failed fetch keeps the previous list and returns the error.
//
// Only the most recent fetch may change the listing. A fetch that completes
// after a newer one started, or after the user changed, is discarded.
func (d *Directory) Fetch(ctx context.Context) error {
	d.mu.Lock()
	userID := d.userID
	if userID == "" {
		d.mu.Unlock()
		return nil
	}
	d.gen++
	gen := d.gen
	d.state = StateLoading
	d.mu.Unlock()

	observability.Emit(ctx, d.observer, EventFetchStart, observability.LevelVerbose, "directory.Fetch", map[string]any{
		"user_id": userID,
	})

	list, err := d.api.ListSessions(ctx, userID)

	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen {
		observability.Emit(ctx, d.observer, EventFetchStale, observability.LevelVerbose, "directory.Fetch", map[string]any{
			"user_id": userID,
		})
		if err != nil {
			return fmt.Errorf("failed to load sessions: %w", err)
		}
		return nil
	}

	if err != nil {
		d.settleLocked()
		observability.Emit(ctx, d.observer, EventFetchError, observability.LevelWarning, "directory.Fetch", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	d.sessions = slices.Clone(list.Sessions)
	d.settleLocked()

	observability.Emit(ctx, d.observer, EventFetchComplete, observability.LevelInfo, "directory.Fetch", map[string]any{
		"user_id":  userID,
		"sessions": len(d.sessions),
	})
	return nil
}

// settleLocked derives the state from the held list once no fetch is
// outstanding.
func (d *Directory) settleLocked() {
	d.state = StateEmpty
	if len(d.sessions) > 0 {
		d.state = StateLoaded
	}
}

// State returns the loading state.
func (d *Directory) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Sessions returns a copy of the last successfully fetched list, in the
// order the remote returned it.
func (d *Directory) Sessions() []protocol.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.sessions)
}

// Entries renders the listing. The entry whose id equals currentID is
// marked current.
func (d *Directory) Entries(currentID string) []Entry {
	now := d.now()

	d.mu.RLock()
	defer d.mu.RUnlock()

	entries := make([]Entry, len(d.sessions))
	for i, s := range d.sessions {
		id := string(s.ID)
		entries[i] = Entry{
			ID:      id,
			Label:   Label(id),
			Updated: RelativeTime(now, s.UpdatedAt.Time),
			Current: currentID != "" && id == currentID,
		}
	}
	return entries
}

// Placeholder returns the text to show instead of entries, or "" when
// entries should be shown.
func (d *Directory) Placeholder() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch {
	case d.state == StateLoading:
		return LoadingText
	case len(d.sessions) == 0:
		return EmptyText
	default:
		return ""
	}
}

// Open shows the overlay.
func (d *Directory) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
}

// Close hides the overlay.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
}

// IsOpen reports whether the overlay is showing.
func (d *Directory) IsOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.open
}

// Select closes the overlay and forwards sessionID to the handler.
func (d *Directory) Select(ctx context.Context, sessionID string) error {
	d.dismiss()
	if d.handler == nil {
		return nil
	}
	return d.handler.SelectSession(ctx, sessionID)
}

// New closes the overlay and asks the handler for a fresh session.
func (d *Directory) New(ctx context.Context) {
	d.dismiss()
	if d.handler != nil {
		d.handler.NewSession(ctx)
	}
}

func (d *Directory) dismiss() {
	if d.overlay {
		d.Close()
	}
}

// Label returns the display name of a session: "Session " followed by the
// first eight characters of its id.
func Label(id string) string {
	r := []rune(id)
	if len(r) > 8 {
		r = r[:8]
	}
	return "Session " + string(r)
}
