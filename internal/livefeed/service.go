package livefeed

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mirelio/echodesk/internal/models"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

type Options struct {
	URL string

	// Reconnect backoff. The delay doubles per failed attempt from BaseBackoff
	// up to MaxBackoff, and resets as soon as any message arrives.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// Staleness watchdog. When no message (heartbeats included) has arrived
	// within StaleThreshold, the connection is presumed dead and torn down so
	// the reconnect loop can replace it. Checked every CheckInterval.
	StaleThreshold time.Duration
	CheckInterval  time.Duration

	FeedLimit  int
	PinUnknown bool

	Logger *logrus.Logger
	Dialer *websocket.Dialer
}

// Service keeps one live event connection to the server, absorbing network
// flakiness so observers only see a feed and a connection state. All event
// kinds count as liveness; only feedback_update events touch the feed.
type Service struct {
	opts Options
	feed *Feed
	log  *logrus.Logger

	mu           sync.Mutex
	state        State
	conn         *websocket.Conn
	lastMsg      time.Time
	attempts     int
	cancel       context.CancelFunc
	listeners    map[int]func(models.DomainEvent)
	nextListener int
	done         chan struct{}
}

func NewService(opts Options) *Service {
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = 45 * time.Second
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	feed := NewFeed(opts.FeedLimit)
	feed.SetPinUnknown(opts.PinUnknown)

	return &Service{
		opts:      opts,
		feed:      feed,
		log:       opts.Logger,
		state:     StateDisconnected,
		listeners: map[int]func(models.DomainEvent){},
	}
}

// Feed returns the merged view this service maintains.
func (s *Service) Feed() *Feed { return s.feed }

// Snapshot returns the current feed contents, most recent first.
func (s *Service) Snapshot() []models.Feedback { return s.feed.Snapshot() }

// MergePage reconciles a page fetched over the pull API into the feed.
func (s *Service) MergePage(page []models.Feedback) { s.feed.MergePage(page) }

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddListener registers fn for every received event and returns its removal
// function. Listeners run on the read loop goroutine; keep them short.
func (s *Service) AddListener(fn func(models.DomainEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Connect starts the connection loop. It returns immediately; the loop runs
// until Disconnect is called or ctx is cancelled.
func (s *Service) Connect(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

// Disconnect stops the loop and closes any live connection. It blocks until
// the loop has exited.
func (s *Service) Disconnect() {
	s.mu.Lock()
	cancel := s.cancel
	conn := s.conn
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done

	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	first := true
	for {
		if ctx.Err() != nil {
			return
		}

		if first {
			s.setState(StateConnecting)
		} else {
			s.setState(StateReconnecting)
		}

		conn, _, err := s.opts.Dialer.DialContext(ctx, s.opts.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := s.nextBackoff()
			s.log.WithError(err).WithField("retry_in", delay.String()).Warn("live feed dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		first = false
		s.mu.Lock()
		s.conn = conn
		s.lastMsg = time.Now()
		s.state = StateConnected
		s.mu.Unlock()

		s.readLoop(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		delay := s.nextBackoff()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// readLoop pumps events off conn until it dies, either from the network or
// from the watchdog closing it.
func (s *Service) readLoop(ctx context.Context, conn *websocket.Conn) {
	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go s.watchdog(ctx, conn, watchdogDone)

	for {
		var ev models.DomainEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				s.log.WithError(err).Info("live feed connection lost")
			}
			_ = conn.Close()
			return
		}

		s.mu.Lock()
		s.lastMsg = time.Now()
		s.attempts = 0
		fns := make([]func(models.DomainEvent), 0, len(s.listeners))
		for _, fn := range s.listeners {
			fns = append(fns, fn)
		}
		s.mu.Unlock()

		if ev.Kind == models.EventFeedbackUpdate && ev.Feedback != nil {
			s.feed.Apply(*ev.Feedback)
		}
		for _, fn := range fns {
			fn(ev)
		}
	}
}

func (s *Service) watchdog(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			stale := time.Since(s.lastMsg) > s.opts.StaleThreshold
			s.mu.Unlock()
			if stale {
				s.log.Warn("live feed stale, forcing reconnect")
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Service) nextBackoff() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.opts.BaseBackoff << s.attempts
	if d > s.opts.MaxBackoff || d <= 0 {
		d = s.opts.MaxBackoff
	}
	s.attempts++
	return d
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
