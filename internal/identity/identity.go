package identity

import (
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pushp314/devconnect-sync/pkg/logger"
)

// Claims mirrors the backend's token claims.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Provider supplies the current viewer's id and a readiness flag. Both
// stores hold their data empty and suppress all fetches until Viewer
// reports ready, and must fully reset when the id changes.
type Provider interface {
	// Viewer returns the current viewer id and whether identity has
	// resolved. An empty id with ready=true means signed out.
	Viewer() (string, bool)
	// Watch registers fn to be called with the new viewer id whenever
	// it changes (including to empty on sign-out).
	Watch(fn func(viewerID string))
}

// TokenProvider resolves the viewer from a session JWT. The token is
// parsed without signature verification: the client holds no signing
// key, and the backend authenticates the token on every gateway call.
type TokenProvider struct {
	mu       sync.RWMutex
	viewerID string
	ready    bool
	watchers []func(string)
}

func NewTokenProvider() *TokenProvider {
	return &TokenProvider{}
}

// SetToken installs a new session token, resolving the viewer id from
// its claims. An empty token signs the viewer out.
func (p *TokenProvider) SetToken(token string) error {
	var viewerID string
	if token != "" {
		claims := &Claims{}
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			logger.Warn().Err(err).Msg("Rejecting malformed session token")
			return err
		}
		viewerID = claims.UserID
	}

	p.mu.Lock()
	changed := !p.ready || p.viewerID != viewerID
	p.viewerID = viewerID
	p.ready = true
	watchers := append([]func(string){}, p.watchers...)
	p.mu.Unlock()

	if changed {
		for _, fn := range watchers {
			fn(viewerID)
		}
	}
	return nil
}

func (p *TokenProvider) Viewer() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.viewerID, p.ready
}

func (p *TokenProvider) Watch(fn func(viewerID string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchers = append(p.watchers, fn)
}

// StaticProvider is a fixed, already-resolved identity. Used by tests
// and by tools that operate on behalf of a known user.
type StaticProvider struct {
	ID string

	mu       sync.Mutex
	watchers []func(string)
}

func (p *StaticProvider) Viewer() (string, bool) { return p.ID, true }

func (p *StaticProvider) Watch(fn func(viewerID string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchers = append(p.watchers, fn)
}

// Change swaps the viewer id and notifies watchers.
func (p *StaticProvider) Change(id string) {
	p.mu.Lock()
	p.ID = id
	watchers := append([]func(string){}, p.watchers...)
	p.mu.Unlock()
	for _, fn := range watchers {
		fn(id)
	}
}
