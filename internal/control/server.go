package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/session"
	"github.com/zishang520/socket.io/v2/socket"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// Server serves the control surface and the health check.
type Server struct {
	addr       string
	dispatcher *Dispatcher
	io         *socket.Server
	httpServer *http.Server
}

// NewServer creates a server listening on addr once served.
func NewServer(addr string, d *Dispatcher) *Server {
	return &Server{
		addr:       addr,
		dispatcher: d,
		io:         socket.NewServer(nil, nil),
	}
}

// HealthHandler answers liveness probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(r.Context()).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// Handler returns the HTTP handler with the socket.io and health routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	mux.HandleFunc("/health", HealthHandler)
	return mux
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := ctxlog.FromContext(ctx)

	s.bind(ctx)
	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🎛️ Control server starting", "address", fmt.Sprintf("http://%s", ln.Addr()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Control server failed unexpectedly", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}
	return s.shutdown(ctx)
}

func (s *Server) shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🎛️ Shutting down control server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	s.io.Close(nil)
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Control server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Control server shut down gracefully.")
	return nil
}

// bind wires socket.io events to the dispatcher and broadcasts its output.
func (s *Server) bind(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	s.dispatcher.OnState(func(ctx context.Context, st session.State) {
		s.broadcast(ctx, EventState, st)
	})
	s.dispatcher.OnError(func(ctx context.Context, err error) {
		s.broadcast(ctx, EventError, ErrorEvent{Error: err.Error()})
	})

	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		logger.Info("Control client connected.", "sid", client.Id())

		client.On(EventAdd, s.handle(ctx, EventAdd))
		client.On(EventRemove, s.handle(ctx, EventRemove))
		client.On(EventMove, s.handle(ctx, EventMove))
		client.On(EventReorder, s.handle(ctx, EventReorder))
		client.On(EventBypass, s.handle(ctx, EventBypass))
		client.On(EventParam, s.handle(ctx, EventParam))
		client.On(EventCrossfade, s.handle(ctx, EventCrossfade))
		client.On(EventDevice, s.handle(ctx, EventDevice))
		client.On(EventInput, s.handle(ctx, EventInput))
		client.On(EventOutput, s.handle(ctx, EventOutput))
		client.On(EventState, s.handle(ctx, EventState))
		client.On("disconnect", func(reason ...any) {
			logger.Info("Control client disconnected.", "sid", client.Id(), "reason", reason)
		})
	})
}

// handle adapts one event to the dispatcher. The last argument is the
// acknowledgement callback when the client asked for one.
func (s *Server) handle(ctx context.Context, event string) func(args ...any) {
	return func(args ...any) {
		var ack func([]any, error)
		if n := len(args); n > 0 {
			if fn, ok := args[n-1].(func([]any, error)); ok {
				ack = fn
				args = args[:n-1]
			}
		}

		var payload []byte
		if len(args) > 0 && args[0] != nil {
			data, err := json.Marshal(args[0])
			if err != nil {
				s.reply(ctx, ack, Ack{Error: fmt.Sprintf("invalid payload: %v", err)})
				return
			}
			payload = data
		}
		s.reply(ctx, ack, s.dispatcher.Dispatch(ctx, event, payload))
	}
}

func (s *Server) reply(ctx context.Context, ack func([]any, error), a Ack) {
	if ack == nil {
		return
	}
	v, err := plain(a)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to encode acknowledgement.", "error", err)
		return
	}
	ack([]any{v}, nil)
}

func (s *Server) broadcast(ctx context.Context, event string, payload any) {
	v, err := plain(payload)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to encode broadcast.", "event", event, "error", err)
		return
	}
	if err := s.io.Emit(event, v); err != nil {
		ctxlog.FromContext(ctx).Warn("Broadcast failed.", "event", event, "error", err)
	}
}

// plain converts v to maps, slices and scalars so the socket.io encoder
// only ever sees JSON-shaped values.
func plain(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
