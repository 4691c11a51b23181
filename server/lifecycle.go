package server

import (
	"context"
	"net"
	"net/http"

	"github.com/vrooli/jobs/errors"
)

// getState returns the current server state
func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", stateString(newState))
}

// stateString returns human-readable state name
func stateString(state ServerState) string {
	switch state {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Start listens on the configured address and serves in the background.
// The listener is bound before Start returns, so a port conflict is reported here.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.httpServer.Addr)
	}
	s.addr = ln.Addr().String()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("HTTP server failed", "error", err)
		}
	}()

	s.logger.Infow("HTTP server listening", "address", s.addr)
	return nil
}

// Addr is the bound address once Start has returned
func (s *Server) Addr() string {
	return s.addr
}

// Stop drains in-flight requests, waiting at most ShutdownTimeout
func (s *Server) Stop() error {
	s.setState(ServerStateDraining)

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.setState(ServerStateStopped)
	if err != nil {
		return errors.Wrap(err, "HTTP server shutdown")
	}
	return nil
}
