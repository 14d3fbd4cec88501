package httpserver

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/hub"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/config"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeStore struct {
	mu      sync.Mutex
	reading domain.Reading
	ok      bool
}

func (f *fakeStore) Get() (domain.Reading, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reading, f.ok
}

func (f *fakeStore) set(r domain.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading, f.ok = r, true
}

type fakeHub struct {
	state       hub.State
	subscribers int
	reconnects  int64
}

func (f *fakeHub) State() hub.State     { return f.state }
func (f *fakeHub) SubscriberCount() int { return f.subscribers }
func (f *fakeHub) Reconnects() int64    { return f.reconnects }

type testServerOptions struct {
	config       *config.Config
	store        *fakeStore
	hub          *fakeHub
	clock        clockwork.Clock
	liveChannel  echo.HandlerFunc
	registry     *prometheus.Registry
	healthChecks []HealthCheck
}

func newTestServer(t *testing.T, opts ...func(*testServerOptions)) *Server {
	t.Helper()

	o := &testServerOptions{
		config: &config.Config{
			Port:         "0",
			StaticDir:    t.TempDir(),
			APIRateLimit: 1000,
			APIRateBurst: 1000,
		},
		store: &fakeStore{},
		hub:   &fakeHub{state: hub.StateConnected},
		clock: clockwork.NewFakeClock(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return NewServer(o.config, o.clock, o.store, o.hub, o.liveChannel, o.registry, nil, o.healthChecks)
}

func withStore(store *fakeStore) func(*testServerOptions) {
	return func(o *testServerOptions) { o.store = store }
}

func withHub(h *fakeHub) func(*testServerOptions) {
	return func(o *testServerOptions) { o.hub = h }
}

func withClock(clock clockwork.Clock) func(*testServerOptions) {
	return func(o *testServerOptions) { o.clock = clock }
}

func withConfig(mutate func(*config.Config)) func(*testServerOptions) {
	return func(o *testServerOptions) { mutate(o.config) }
}

func withLiveChannel(h echo.HandlerFunc) func(*testServerOptions) {
	return func(o *testServerOptions) { o.liveChannel = h }
}

func withRegistry(reg *prometheus.Registry) func(*testServerOptions) {
	return func(o *testServerOptions) { o.registry = reg }
}

func withHealthChecks(checks ...HealthCheck) func(*testServerOptions) {
	return func(o *testServerOptions) { o.healthChecks = checks }
}

// serve runs a request through the full middleware stack.
func serve(srv *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "203.0.113.9:4321"
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
