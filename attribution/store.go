// Package attribution keeps first-touch, last-touch and session-touch UTM snapshots plus a
// bounded touch history for one visitor.
package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"erpsite/api/logger"
	"erpsite/api/metrics"
	"erpsite/api/models"
	"erpsite/api/utils"
)

// Storage keys. The first three live in local storage, the last two in session storage.
const (
	KeyFirstTouch   = "utm_first_touch"
	KeyLastTouch    = "utm_last_touch"
	KeyHistory      = "utm_history"
	KeySessionTouch = "utm_session"
	KeySessionID    = "utm_session_id"
)

// MaxHistory bounds the touch history; the oldest entries are evicted first.
const MaxHistory = 50

var ErrInvalidTouchType = errors.New("invalid touch type")

type Store struct {
	local   Storage
	session Storage
	now     func() time.Time

	mu           sync.Mutex
	pageURL      string
	current      *models.UTMParams
	firstTouch   *models.UTMParams
	lastTouch    *models.UTMParams
	sessionTouch *models.UTMParams
	history      []models.UTMAttribution
	sessionID    string
}

type Option func(*Store)

// WithClock overrides time.Now for history timestamps and session ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore builds a store over durable local storage and browser-session storage. Passing the
// same Storage for both is allowed.
func NewStore(local, session Storage, opts ...Option) *Store {
	s := &Store{local: local, session: session, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the four slots. Missing or unreadable slots are left empty.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.firstTouch = s.readUTM(ctx, s.local, KeyFirstTouch)
	s.lastTouch = s.readUTM(ctx, s.local, KeyLastTouch)
	s.sessionTouch = s.readUTM(ctx, s.session, KeySessionTouch)
	s.history = s.readHistory(ctx)
}

// Init loads the stored slots and records the UTM parameters of pageURL, if any: always as
// last touch and session touch, and as first touch only when none is stored yet.
func (s *Store) Init(ctx context.Context, pageURL string) models.AttributionSnapshot {
	s.Load(ctx)

	utm := utils.ParseUTM(pageURL)

	s.mu.Lock()
	s.pageURL = pageURL
	s.current = nil
	if !utm.IsEmpty() {
		c := utm
		s.current = &c
	}
	hasFirst := s.firstTouch != nil
	s.mu.Unlock()

	if !utm.IsEmpty() {
		_ = s.StoreUTM(ctx, utm, models.TouchLast)
		if !hasFirst {
			_ = s.StoreUTM(ctx, utm, models.TouchFirst)
		}
		_ = s.StoreUTM(ctx, utm, models.TouchSession)
	}

	return s.Snapshot()
}

// StoreUTM writes utm to the slot for touch and appends a history entry. A stored first
// touch is never replaced; the history entry is still appended. Storage failures are logged
// and otherwise ignored.
func (s *Store) StoreUTM(ctx context.Context, utm models.UTMParams, touch models.TouchType) error {
	if !touch.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTouchType, touch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := utm
	switch touch {
	case models.TouchFirst:
		if s.firstTouch == nil {
			s.firstTouch = s.readUTM(ctx, s.local, KeyFirstTouch)
		}
		if s.firstTouch == nil {
			s.writeJSON(ctx, s.local, KeyFirstTouch, v)
			s.firstTouch = &v
		}
	case models.TouchLast:
		s.writeJSON(ctx, s.local, KeyLastTouch, v)
		s.lastTouch = &v
	case models.TouchSession:
		s.writeJSON(ctx, s.session, KeySessionTouch, v)
		s.sessionTouch = &v
	}

	s.history = append(s.history, models.UTMAttribution{
		UTM:       utm,
		Timestamp: s.now().UnixMilli(),
		SessionID: s.sessionIDLocked(ctx),
		PageURL:   s.pageURL,
	})
	if len(s.history) > MaxHistory {
		s.history = append([]models.UTMAttribution(nil), s.history[len(s.history)-MaxHistory:]...)
	}
	s.writeJSON(ctx, s.local, KeyHistory, s.history)

	metrics.UTMTouches.WithLabelValues(string(touch)).Inc()
	return nil
}

// Clear removes the four slot keys and empties the in-memory state. The session id is kept.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range []string{KeyFirstTouch, KeyLastTouch, KeyHistory} {
		if err := s.local.Remove(ctx, k); err != nil {
			logger.Warn("attribution: failed to remove slot", "key", k, "error", err)
		}
	}
	if err := s.session.Remove(ctx, KeySessionTouch); err != nil {
		logger.Warn("attribution: failed to remove slot", "key", KeySessionTouch, "error", err)
	}

	s.current = nil
	s.firstTouch = nil
	s.lastTouch = nil
	s.sessionTouch = nil
	s.history = nil
}

// SessionID returns the session identifier, generating and caching it on first use.
func (s *Store) SessionID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionIDLocked(ctx)
}

func (s *Store) sessionIDLocked(ctx context.Context) string {
	if s.sessionID != "" {
		return s.sessionID
	}

	if v, ok, err := s.session.Get(ctx, KeySessionID); err != nil {
		logger.Warn("attribution: failed to read session id", "error", err)
	} else if ok && v != "" {
		s.sessionID = v
		return v
	}

	s.sessionID = utils.GenerateSessionID(s.now())
	if err := s.session.Set(ctx, KeySessionID, s.sessionID); err != nil {
		logger.Warn("attribution: failed to persist session id", "error", err)
	}
	return s.sessionID
}

// Current is the UTM set seen by the last Init, falling back to the last touch.
func (s *Store) Current() (models.UTMParams, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return *s.current, true
	}
	if s.lastTouch != nil {
		return *s.lastTouch, true
	}
	return models.UTMParams{}, false
}

func (s *Store) FirstTouch() (models.UTMParams, bool) { return s.slot(func() *models.UTMParams { return s.firstTouch }) }
func (s *Store) LastTouch() (models.UTMParams, bool)  { return s.slot(func() *models.UTMParams { return s.lastTouch }) }
func (s *Store) SessionTouch() (models.UTMParams, bool) {
	return s.slot(func() *models.UTMParams { return s.sessionTouch })
}

func (s *Store) slot(get func() *models.UTMParams) (models.UTMParams, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := get(); p != nil {
		return *p, true
	}
	return models.UTMParams{}, false
}

// History returns a copy of the touch history, oldest first.
func (s *Store) History() []models.UTMAttribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UTMAttribution(nil), s.history...)
}

// Snapshot returns every slot in one value. It does not generate a session id.
func (s *Store) Snapshot() models.AttributionSnapshot {
	cur, hasCur := s.Current()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.AttributionSnapshot{
		FirstTouch:   clone(s.firstTouch),
		LastTouch:    clone(s.lastTouch),
		SessionTouch: clone(s.sessionTouch),
		History:      append([]models.UTMAttribution{}, s.history...),
		SessionID:    s.sessionID,
	}
	if hasCur {
		snap.Current = &cur
	}
	return snap
}

func clone(p *models.UTMParams) *models.UTMParams {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (s *Store) readUTM(ctx context.Context, st Storage, key string) *models.UTMParams {
	raw, ok, err := st.Get(ctx, key)
	if err != nil {
		logger.Warn("attribution: failed to read slot", "key", key, "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var utm models.UTMParams
	if err := json.Unmarshal([]byte(raw), &utm); err != nil {
		logger.Warn("attribution: discarding undecodable slot", "key", key, "error", err)
		return nil
	}
	if utm.IsEmpty() {
		return nil
	}
	return &utm
}

func (s *Store) readHistory(ctx context.Context) []models.UTMAttribution {
	raw, ok, err := s.local.Get(ctx, KeyHistory)
	if err != nil {
		logger.Warn("attribution: failed to read history", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var h []models.UTMAttribution
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		logger.Warn("attribution: discarding undecodable history", "error", err)
		return nil
	}
	if len(h) > MaxHistory {
		h = h[len(h)-MaxHistory:]
	}
	return h
}

func (s *Store) writeJSON(ctx context.Context, st Storage, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("attribution: failed to encode slot", "key", key, "error", err)
		return
	}
	if err := st.Set(ctx, key, string(b)); err != nil {
		logger.Warn("attribution: failed to write slot", "key", key, "error", err)
	}
}
