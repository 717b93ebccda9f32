package storeclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"fancystore/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const DefaultPollInterval = 5 * time.Second

// State is an immutable snapshot handed to subscribers.
type State struct {
	Products []models.Product
	Cart     []models.CartItem
	User     *models.UserSummary
}

// Options configures a Store. With Watch set the store also listens on
// /ws/products and refreshes the catalog on every event.
type Options struct {
	BaseURL      string
	SessionFile  string
	PollInterval time.Duration
	Watch        bool
	HTTPClient   *http.Client
	Logger       logrus.FieldLogger
}

type Store struct {
	baseURL     string
	sessionFile string
	poll        time.Duration
	watch       bool
	http        *http.Client
	logger      logrus.FieldLogger

	mu      sync.RWMutex
	state   State
	tok     string
	subs    map[int]func(State)
	nextSub int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	dialer  *websocket.Dialer
}

// New restores any saved session. It does not contact the server.
func New(opts Options) (*Store, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("storeclient: BaseURL is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Logger = l
	}
	s := &Store{
		baseURL:     opts.BaseURL,
		sessionFile: opts.SessionFile,
		poll:        opts.PollInterval,
		watch:       opts.Watch,
		http:        opts.HTTPClient,
		logger:      opts.Logger,
		subs:        make(map[int]func(State)),
		dialer:      websocket.DefaultDialer,
	}
	sess, err := loadSession(opts.SessionFile)
	if err != nil {
		s.logger.WithError(err).Warn("ignoring unreadable session")
	} else if sess != nil {
		s.tok = sess.Token
		s.state.User = sess.User
	}
	return s, nil
}

func (s *Store) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tok
}

func snapshot(st State) State {
	out := State{
		Products: append([]models.Product(nil), st.Products...),
		Cart:     append([]models.CartItem(nil), st.Cart...),
	}
	if st.User != nil {
		u := *st.User
		out.User = &u
	}
	return out
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.state)
}

// Subscribe registers fn for every state change. Call the returned func
// to stop receiving updates.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// update applies fn under the lock and then notifies subscribers outside
// of it.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := snapshot(s.state)
	subs := make([]func(State), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.mu.Unlock()

	for _, f := range subs {
		f(snapshot(snap))
	}
}

// Start loads products (and the cart when signed in) and keeps them fresh
// until Stop or ctx is done.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("storeclient: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.RefreshProducts(ctx); err != nil {
		s.logger.WithError(err).Warn("initial product load failed")
	}
	if err := s.RefreshCart(ctx); err != nil {
		s.logger.WithError(err).Warn("initial cart load failed")
	}

	s.wg.Add(1)
	go s.pollLoop(ctx)
	if s.watch {
		s.wg.Add(1)
		go s.watchLoop(ctx)
	}
	return nil
}

func (s *Store) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Store) pollLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RefreshProducts(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Debug("product poll failed")
			}
		}
	}
}

func (s *Store) wsURL() string {
	u := strings.TrimRight(s.baseURL, "/") + "/ws/products"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// watchLoop reconnects with capped backoff until ctx is done.
func (s *Store) watchLoop(ctx context.Context) {
	defer s.wg.Done()
	backoff := time.Second
	for ctx.Err() == nil {
		conn, _, err := s.dialer.DialContext(ctx, s.wsURL(), nil)
		if err != nil {
			s.logger.WithError(err).Debug("catalog feed unavailable")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		stop := context.AfterFunc(ctx, func() { conn.Close() })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			if err := s.RefreshProducts(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Debug("refresh after catalog event failed")
			}
		}
		stop()
		conn.Close()
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
	}
}
