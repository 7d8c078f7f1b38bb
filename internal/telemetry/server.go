package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	maxBodyBytes   = 64 << 10
	sweepInterval  = time.Minute
)

// Inspector runs the manual test actions exposed over HTTP.
type Inspector interface {
	TestURL(url string) domain.Decision
	SimulateBlock(url string, browser domain.BrowserID) domain.SimulationResult
}

// ServerConfig configures the observation server.
type ServerConfig struct {
	Host         string
	Port         int     // first port tried; 0 picks an ephemeral port
	PortAttempts int     // extra consecutive ports tried when Port is taken
	RateLimit    float64 // API requests per second per remote IP; 0 disables
	RateBurst    int
}

// DefaultServerConfig returns the default observation server config.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         9229,
		PortAttempts: 10,
		RateLimit:    20,
		RateBurst:    40,
	}
}

// Server exposes the hub over HTTP (status, state, clients, test actions)
// and WebSocket (live event stream).
type Server struct {
	cfg       ServerConfig
	hub       *Hub
	inspector Inspector
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	limiter   *ipRateLimiter
	handler   http.Handler
	httpSrv   *http.Server

	mu       sync.Mutex
	listener net.Listener
	port     int
	conns    map[string]*websocket.Conn
	closing  bool
	wg       sync.WaitGroup

	shutdown    sync.Once
	shutdownErr error
}

// NewServer creates an observation server. Call Listen or Start to bind it.
func NewServer(cfg ServerConfig, hub *Hub, inspector Inspector, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		hub:       hub,
		inspector: inspector,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[string]*websocket.Conn),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = newIPRateLimiter(cfg.RateLimit, burst)
	}

	api := http.Handler(http.HandlerFunc(s.apiHandler))
	if s.limiter != nil {
		api = s.limiter.middleware(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/ws", s.wsHandler)
	mux.Handle("/api/", api)
	s.handler = withCORS(mux)
	s.httpSrv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen binds the first free port in [Port, Port+PortAttempts].
func (s *Server) Listen() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.port, nil
	}

	attempts := s.cfg.PortAttempts
	if s.cfg.Port == 0 || attempts < 0 {
		attempts = 0
	}

	var lastErr error
	for port := s.cfg.Port; port <= s.cfg.Port+attempts; port++ {
		addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			lastErr = err
			s.logger.Debug("debug server port unavailable",
				zap.String("addr", addr),
				zap.Error(err))
			continue
		}
		s.listener = ln
		s.port = ln.Addr().(*net.TCPAddr).Port
		return s.port, nil
	}
	return 0, fmt.Errorf("no free port in %d-%d: %w", s.cfg.Port, s.cfg.Port+attempts, lastErr)
}

// Port returns the bound port, or 0 before Listen.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns the dashboard URL, or "" before Listen.
func (s *Server) URL() string {
	port := s.Port()
	if port == 0 {
		return ""
	}
	return "http://" + net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
}

// Start binds (if needed) and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	s.logger.Info("debug server started", zap.String("url", s.URL()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var sweep <-chan time.Time
	if s.limiter != nil {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Shutdown(shutdownCtx)
			return nil
		case err := <-errCh:
			if err != nil {
				_ = s.Shutdown(context.Background())
				return fmt.Errorf("serve debug server: %w", err)
			}
			return nil
		case <-sweep:
			s.limiter.sweep()
		}
	}
}

// Shutdown stops accepting requests and disconnects every observer.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Do(func() {
		// No observer may register once Wait can start.
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		err := s.httpSrv.Shutdown(ctx)

		s.mu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		ids := make([]string, 0, len(s.conns))
		for id := range s.conns {
			ids = append(ids, id)
		}
		s.mu.Unlock()
		for _, id := range ids {
			s.hub.Unsubscribe(id)
		}
		s.wg.Wait()

		if err != nil {
			s.shutdownErr = fmt.Errorf("shutdown debug server: %w", err)
		}
		s.logger.Info("debug server stopped")
	})
	return s.shutdownErr
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.wsHandler(w, r)
		return
	}
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

type testURLRequest struct {
	URL string `json:"url"`
}

type simulateRequest struct {
	URL     string `json:"url"`
	Browser string `json:"browser"`
}

func (s *Server) apiHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/status" && r.Method == http.MethodGet:
		s.queryHandler(w, QueryStatus)
	case r.URL.Path == "/api/state" && r.Method == http.MethodGet:
		s.queryHandler(w, QueryState)
	case r.URL.Path == "/api/clients" && r.Method == http.MethodGet:
		s.queryHandler(w, QueryClients)
	case r.URL.Path == "/api/test-url" && r.Method == http.MethodPost:
		s.testURLHandler(w, r)
	case r.URL.Path == "/api/simulate-block" && r.Method == http.MethodPost:
		s.simulateHandler(w, r)
	default:
		writeError(w, http.StatusNotFound, "API endpoint not found")
	}
}

func (s *Server) queryHandler(w http.ResponseWriter, kind QueryKind) {
	v, err := s.hub.Query(kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) testURLHandler(w http.ResponseWriter, r *http.Request) {
	var req testURLRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	writeJSON(w, http.StatusOK, s.inspector.TestURL(req.URL))
}

func (s *Server) simulateHandler(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.URL == "" || req.Browser == "" {
		writeError(w, http.StatusBadRequest, "URL and browser are required")
		return
	}
	writeJSON(w, http.StatusOK, s.inspector.SimulateBlock(req.URL, domain.BrowserID(req.Browser)))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
