package service

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rpheuts/ultraviolet-sub001/multiplexer"
)

// Options configures a Server, mirroring the original service's CLI
// surface (spec section 6): bind address, optional TLS, optional static
// asset directory.
type Options struct {
	BindAddr  string
	TLSCert   string
	TLSKey    string
	StaticDir string
}

// Server is the WebSocket bridge described in spec section 4.9: it
// accepts connections at /ws, hands each one its own session, and
// optionally serves static web assets at /.
type Server struct {
	opts   Options
	mux    *multiplexer.Multiplexer
	logger *slog.Logger

	upgrader websocket.Upgrader
	http     *http.Server
}

// New constructs a Server. A nil logger falls back to slog.Default().
func New(opts Options, mux *multiplexer.Multiplexer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		opts:   opts,
		mux:    mux,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The pulse protocol is consumed by UV's own clients, not
			// arbitrary browser pages; allow cross-origin upgrades.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	handler := http.NewServeMux()
	handler.HandleFunc("/ws", s.handleWS)
	if opts.StaticDir != "" {
		handler.Handle("/", http.FileServer(http.Dir(opts.StaticDir)))
	}

	s.http = &http.Server{
		Addr:    opts.BindAddr,
		Handler: handler,
	}

	return s
}

// ListenAndServe blocks serving the bridge until the server is shut down
// or a listener error occurs. It is TLS-aware: Options.TLSCert/TLSKey
// select HTTPS/WSS.
func (s *Server) ListenAndServe() error {
	if s.opts.TLSCert != "" {
		s.logger.Info("starting service", "addr", s.opts.BindAddr, "tls", true)
		s.http.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		return s.http.ListenAndServeTLS(s.opts.TLSCert, s.opts.TLSKey)
	}
	s.logger.Info("starting service", "addr", s.opts.BindAddr, "tls", false)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(conn, s.mux, s.logger)
	sess.run()
}
