package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/metal-toolbox/snatt/internal/client"
	"github.com/metal-toolbox/snatt/internal/panel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed templates/*.html static/*
var assets embed.FS

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	writeTimeout      = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server renders the dashboard and pushes panel phase changes to open pages.
type Server struct {
	listenAddress string
	dashboard     *panel.Dashboard
	logger        *logrus.Entry
	templates     *template.Template
	router        *mux.Router

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	broadcast chan []byte
	doneCh    chan struct{}
	closeOnce sync.Once
}

// New returns a dashboard server whose panels reach data through api.
func New(listenAddress string, api client.API, logger *logrus.Entry) (*Server, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}

	s := &Server{
		listenAddress: listenAddress,
		logger:        logger,
		templates:     tmpl,
		clients:       make(map[*websocket.Conn]bool),
		broadcast:     make(chan []byte, 256),
		doneCh:        make(chan struct{}),
	}

	s.dashboard = panel.NewDashboard(api, logger, s.notify)
	s.initRouter()

	go s.handleBroadcasts()

	return s, nil
}

func (s *Server) initRouter() {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	r.HandleFunc("/panels/discovery/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/panels/discovery/select", s.handleSelect).Methods(http.MethodPost)
	r.HandleFunc("/panels/discovery/connect", s.handleConnect).Methods(http.MethodPost)
	r.HandleFunc("/panels/diagnostics/run", s.handleDiagnostics).Methods(http.MethodPost)
	r.HandleFunc("/panels/backup/create", s.handleBackupCreate).Methods(http.MethodPost)
	r.HandleFunc("/panels/backup/refresh", s.handleBackupRefresh).Methods(http.MethodPost)
	r.HandleFunc("/panels/reports/generate", s.handleReport).Methods(http.MethodPost)
	r.HandleFunc("/panels/settings/credentials", s.handleCredentialAdd).Methods(http.MethodPost)
	r.HandleFunc("/panels/settings/form", s.handleCredentialForm).Methods(http.MethodPost)
	r.HandleFunc("/panels/{panel}/dismiss", s.handleDismiss).Methods(http.MethodPost)

	static, err := fs.Sub(assets, "static")
	if err == nil {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	s.router = r
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "snatt-dashboard")
}

// Dashboard returns the panels rendered by the server.
func (s *Server) Dashboard() *panel.Dashboard {
	return s.dashboard
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.listenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("address", srv.Addr).Info("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "dashboard server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// Close stops the broadcaster and drops websocket clients.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.doneCh)

		s.clientsMu.Lock()
		defer s.clientsMu.Unlock()

		for conn := range s.clients {
			conn.Close()
			delete(s.clients, conn)
		}
	})
}

// notify queues a phase change for the websocket clients, dropping it when the queue is full.
func (s *Server) notify(e panel.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	select {
	case s.broadcast <- data:
	default:
		s.logger.Debug("phase event dropped")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// the initial phases are written under the write lock so the broadcaster cannot interleave
	s.clientsMu.Lock()
	for _, e := range s.dashboard.Phases() {
		if err := conn.WriteJSON(e); err != nil {
			s.clientsMu.Unlock()
			return
		}
	}
	s.clients[conn] = true
	s.clientsMu.Unlock()

	s.logger.Debug("websocket client connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.clientsMu.Lock()
	delete(s.clients, conn)
	s.clientsMu.Unlock()

	s.logger.Debug("websocket client disconnected")
}

func (s *Server) handleBroadcasts() {
	for {
		select {
		case <-s.doneCh:
			return
		case message := <-s.broadcast:
			s.send(message)
		}
	}
}

func (s *Server) send(message []byte) {
	dead := []*websocket.Conn{}

	s.clientsMu.RLock()
	for conn := range s.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			dead = append(dead, conn)
		}
	}
	s.clientsMu.RUnlock()

	if len(dead) == 0 {
		return
	}

	s.clientsMu.Lock()
	for _, conn := range dead {
		conn.Close()
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()
}
