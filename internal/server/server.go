package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finvox/finvox-go/internal/session"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Handler returns the HTTP handler for the app.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/voice_stream", a.handleVoiceStream).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.CustomLoggingHandler(io.Discard, h, a.logRequest)
	h = handlers.CORS(
		handlers.AllowedOrigins(a.Config.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{a.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
	return h
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *App) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	a.logger.Info("HTTP request",
		slog.String("method", p.Request.Method),
		slog.String("path", p.URL.Path),
		slog.Int("status", p.StatusCode),
		slog.Int("size", p.Size),
		slog.Duration("elapsed", time.Since(p.TimeStamp)),
		slog.String("remote", p.Request.RemoteAddr))
}

type recoveryLogger struct{ logger *slog.Logger }

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("Recovered from panic", slog.String("panic", fmt.Sprint(v...)))
}

func (a *App) upgrader() *websocket.Upgrader {
	origins := a.Config.Server.AllowedOrigins
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}
}

func (a *App) handleVoiceStream(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		a.logger.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	srv := a.Config.Server
	ws := newWSConn(conn, srv.ReadLimit, srv.WriteTimeout, srv.PingInterval, a.logger)
	ctx := r.Context()

	sess, err := session.New(a.sessions, ws)
	if err != nil {
		a.logger.Error("Failed to start session", slog.String("error", err.Error()))
		ws.Close()
		return
	}
	logger := a.logger.With(slog.String("conversation_id", sess.ID().String()))
	logger.Info("New websocket connection", slog.String("remote", r.RemoteAddr))

	go ws.keepAlive(ctx)
	defer sess.Close()
	defer ws.Close()

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Info("Client disconnected")
			} else if ctx.Err() == nil {
				logger.Warn("Websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := sess.HandleAudio(ctx, data); err != nil {
				logger.Warn("Closing session", slog.String("error", err.Error()))
				return
			}
		case websocket.TextMessage:
			sess.HandleText(ctx, string(data))
		}
	}
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully. Open websocket sessions see ctx cancelled and close.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
