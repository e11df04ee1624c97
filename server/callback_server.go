package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const callbackPath = "/oauth/callback"

// CallbackResult is the outcome of one authorization redirect.
type CallbackResult struct {
	Code             string
	State            string
	ErrorCode        string
	ErrorDescription string
}

// Err returns the provider's error as a Go error, or nil for a success
// redirect.
func (r CallbackResult) Err() error {
	if r.ErrorCode == "" {
		return nil
	}
	if r.ErrorDescription != "" {
		return fmt.Errorf("authorization failed: %s - %s", r.ErrorCode, r.ErrorDescription)
	}
	return fmt.Errorf("authorization failed: %s", r.ErrorCode)
}

// CallbackServer is a loopback HTTP server that captures a single OAuth
// redirect and then refuses further ones.
type CallbackServer struct {
	port     int
	server   *http.Server
	resultCh chan CallbackResult
	once     sync.Once
}

// NewCallbackServer creates a callback server for the given loopback port.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{
		port:     port,
		resultCh: make(chan CallbackResult, 1),
	}
}

// Start begins listening on the loopback interface and returns the redirect
// URI the provider must be configured with.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrapf(err, "[Start] listening on %s", addr)
	}
	// Port 0 asks the kernel for a free port; report the bound one.
	addr = listener.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if serveErr := s.server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Error().Err(serveErr).Msg("callback server stopped unexpectedly")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	redirectURI := fmt.Sprintf("http://%s%s", addr, callbackPath)
	log.Debug().Str("redirectURI", redirectURI).Msg("callback server listening")
	return redirectURI, nil
}

// Wait blocks until a redirect arrives or the context is cancelled.
func (s *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *CallbackServer) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	result := CallbackResult{
		Code:             r.FormValue("code"),
		State:            r.FormValue("state"),
		ErrorCode:        r.FormValue("error"),
		ErrorDescription: r.FormValue("error_description"),
	}

	delivered := false
	s.once.Do(func() {
		s.resultCh <- result
		delivered = true
	})
	if !delivered {
		http.Error(w, "authorization already completed", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.ErrorCode != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "<html><body><h1>Authorization failed</h1><p>You can close this window.</p></body></html>")
		return
	}
	fmt.Fprint(w, "<html><body><h1>Signed in</h1><p>You can close this window and return to the terminal.</p></body></html>")
}
