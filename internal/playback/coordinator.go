package playback

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mirelio/echodesk/internal/utils"
)

// HandleEventKind classifies callbacks a Handle raises.
type HandleEventKind string

const (
	EventProgress HandleEventKind = "progress"
	EventEnded    HandleEventKind = "ended"
	EventError    HandleEventKind = "error"
)

type HandleEvent struct {
	Kind        HandleEventKind
	CurrentTime float64
	Duration    float64
	Err         error
}

// Handle is one loaded audio resource. Implementations raise events through
// the callback given to the HandleFactory; the coordinator serializes access
// to each handle.
type Handle interface {
	Play() error
	Pause() error
	Seek(seconds float64) error
	Close() error
}

// HandleFactory loads the audio behind locator. The events callback may be
// invoked from any goroutine.
type HandleFactory func(locator string, events func(HandleEvent)) (Handle, error)

// Snapshot is the externally visible playback state.
type Snapshot struct {
	ResourceID  string  `json:"resource_id"`
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}

type entry struct {
	handle  Handle
	locator string
	playing bool
}

// Coordinator enforces single-audio playback across any number of resources.
// Handles are cached per resource id so replaying does not reload, and are
// refreshed when the resource's locator changes.
type Coordinator struct {
	factory HandleFactory
	log     *logrus.Logger

	mu        sync.Mutex
	entries   map[string]*entry
	currentID string
	current   Snapshot

	listeners    map[int]func(Snapshot)
	nextListener int

	progressEvery time.Duration
	lastProgress  time.Time
}

type Option func(*Coordinator)

// WithProgressInterval sets the minimum spacing between progress
// notifications. Terminal events are never throttled.
func WithProgressInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.progressEvery = d }
}

func WithLogger(log *logrus.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

func NewCoordinator(factory HandleFactory, opts ...Option) *Coordinator {
	c := &Coordinator{
		factory:       factory,
		log:           logrus.New(),
		entries:       map[string]*entry{},
		listeners:     map[int]func(Snapshot){},
		progressEvery: 250 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Subscribe registers fn for state changes and returns its removal function.
// fn is called immediately with the current snapshot.
func (c *Coordinator) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	snap := c.current
	c.mu.Unlock()

	fn(snap)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// State returns the current snapshot.
func (c *Coordinator) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Preload ensures a handle exists for the resource without starting playback.
func (c *Coordinator) Preload(resourceID, locator string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.ensureLocked(resourceID, locator)
	return err
}

// Play starts the resource, stopping whatever else is playing first. A
// changed locator for a cached resource evicts the stale handle.
func (c *Coordinator) Play(resourceID, locator string) error {
	const op = "Coordinator.Play"

	c.mu.Lock()
	e, err := c.ensureLocked(resourceID, locator)
	if err != nil {
		c.mu.Unlock()
		return utils.E(utils.CodeUnavailable, op, "failed to load audio resource", err)
	}

	// exclusivity: every other playing handle stops before this one starts
	for id, other := range c.entries {
		if id != resourceID && other.playing {
			if err := other.handle.Pause(); err != nil {
				c.log.WithError(err).WithField("resource_id", id).Warn("failed to pause resource")
			}
			other.playing = false
		}
	}

	if err := e.handle.Play(); err != nil {
		c.mu.Unlock()
		return utils.E(utils.CodeInternal, op, "failed to start playback", err)
	}
	e.playing = true
	c.currentID = resourceID
	c.current.ResourceID = resourceID
	c.current.IsPlaying = true
	snap, fns := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap, fns)
	return nil
}

// Pause pauses the named resource. Pausing a resource that is not current or
// not playing is a no-op.
func (c *Coordinator) Pause(resourceID string) error {
	const op = "Coordinator.Pause"

	c.mu.Lock()
	if resourceID != c.currentID {
		c.mu.Unlock()
		return nil
	}
	e := c.entries[c.currentID]
	if e == nil || !e.playing {
		c.mu.Unlock()
		return nil
	}
	if err := e.handle.Pause(); err != nil {
		c.mu.Unlock()
		return utils.E(utils.CodeInternal, op, "failed to pause playback", err)
	}
	e.playing = false
	c.current.IsPlaying = false
	snap, fns := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap, fns)
	return nil
}

// Resume restarts the named resource from its pause position. Only the
// current resource can resume; anything else needs a fresh Play.
func (c *Coordinator) Resume(resourceID string) error {
	const op = "Coordinator.Resume"

	c.mu.Lock()
	if resourceID != c.currentID {
		c.mu.Unlock()
		return utils.E(utils.CodeNotFound, op, "resource is not current", nil)
	}
	e := c.entries[c.currentID]
	if e == nil {
		c.mu.Unlock()
		return utils.E(utils.CodeNotFound, op, "no current audio resource", nil)
	}
	if e.playing {
		c.mu.Unlock()
		return nil
	}
	if err := e.handle.Play(); err != nil {
		c.mu.Unlock()
		return utils.E(utils.CodeInternal, op, "failed to resume playback", err)
	}
	e.playing = true
	c.current.IsPlaying = true
	snap, fns := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap, fns)
	return nil
}

// Stop halts the named resource, rewinds it, and clears the current
// selection. The handle stays cached.
func (c *Coordinator) Stop(resourceID string) error {
	const op = "Coordinator.Stop"

	c.mu.Lock()
	if resourceID != c.currentID {
		c.mu.Unlock()
		return nil
	}
	e := c.entries[c.currentID]
	if e == nil {
		c.mu.Unlock()
		return nil
	}
	if e.playing {
		if err := e.handle.Pause(); err != nil {
			c.mu.Unlock()
			return utils.E(utils.CodeInternal, op, "failed to stop playback", err)
		}
		e.playing = false
	}
	if err := e.handle.Seek(0); err != nil {
		c.log.WithError(err).WithField("resource_id", c.currentID).Warn("failed to rewind resource")
	}
	c.currentID = ""
	c.current = Snapshot{}
	snap, fns := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap, fns)
	return nil
}

// Close releases every cached handle.
func (c *Coordinator) Close() {
	c.mu.Lock()
	entries := c.entries
	c.entries = map[string]*entry{}
	c.currentID = ""
	c.current = Snapshot{}
	c.mu.Unlock()

	for id, e := range entries {
		if err := e.handle.Close(); err != nil {
			c.log.WithError(err).WithField("resource_id", id).Warn("failed to close resource")
		}
	}
}

// ensureLocked returns the cached entry for resourceID, loading or reloading
// it as needed. Caller holds c.mu.
func (c *Coordinator) ensureLocked(resourceID, locator string) (*entry, error) {
	if e, ok := c.entries[resourceID]; ok {
		if e.locator == locator {
			return e, nil
		}
		// resource content changed; the old handle is useless
		if err := e.handle.Close(); err != nil {
			c.log.WithError(err).WithField("resource_id", resourceID).Warn("failed to close stale resource")
		}
		delete(c.entries, resourceID)
	}

	h, err := c.factory(locator, func(ev HandleEvent) {
		c.onHandleEvent(resourceID, ev)
	})
	if err != nil {
		return nil, err
	}
	e := &entry{handle: h, locator: locator}
	c.entries[resourceID] = e
	return e, nil
}

func (c *Coordinator) onHandleEvent(resourceID string, ev HandleEvent) {
	c.mu.Lock()
	e := c.entries[resourceID]
	if e == nil {
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case EventProgress:
		if resourceID != c.currentID {
			c.mu.Unlock()
			return
		}
		c.current.CurrentTime = ev.CurrentTime
		if ev.Duration > 0 {
			c.current.Duration = ev.Duration
		}
		now := time.Now()
		if now.Sub(c.lastProgress) < c.progressEvery {
			c.mu.Unlock()
			return
		}
		c.lastProgress = now

	case EventEnded, EventError:
		if ev.Kind == EventError && ev.Err != nil {
			c.log.WithError(ev.Err).WithField("resource_id", resourceID).Warn("playback failed")
		}
		// terminal: the handle is spent, evict it
		if err := e.handle.Close(); err != nil {
			c.log.WithError(err).WithField("resource_id", resourceID).Warn("failed to close resource")
		}
		delete(c.entries, resourceID)
		if resourceID == c.currentID {
			c.currentID = ""
			c.current = Snapshot{}
		}

	default:
		c.mu.Unlock()
		return
	}

	snap, fns := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap, fns)
}

func (c *Coordinator) snapshotLocked() (Snapshot, []func(Snapshot)) {
	fns := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	return c.current, fns
}

// notify runs outside the lock so listeners can call back into the
// coordinator.
func (c *Coordinator) notify(snap Snapshot, fns []func(Snapshot)) {
	for _, fn := range fns {
		fn(snap)
	}
}
