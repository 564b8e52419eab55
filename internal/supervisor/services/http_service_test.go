// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*HTTPServerService)(nil)

// waitBound polls until the service has bound a listener.
func waitBound(t *testing.T, svc *HTTPServerService) net.Addr {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if a := svc.Addr(); a != nil {
			return a
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server never bound a listener")
	return nil
}

func TestHTTPServerService_ServesUntilCanceled(t *testing.T) {
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, "127.0.0.1:0", time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	addr := waitBound(t, svc)
	resp, err := http.Get("http://" + addr.String() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if svc.Addr() != nil {
		t.Error("Addr() should be nil after shutdown")
	}
}

func TestHTTPServerService_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	svc := NewHTTPServerService(&http.Server{ReadHeaderTimeout: time.Second}, ln.Addr().String(), 0, zerolog.Nop())
	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("Serve() on a taken port should fail")
	}
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("default shutdown timeout = %v, want 10s", svc.shutdownTimeout)
	}
}

type stubServer struct {
	serveErr    error
	shutdownErr error
	stop        chan struct{}
}

func (s *stubServer) Serve(ln net.Listener) error {
	defer ln.Close()
	if s.serveErr != nil {
		return s.serveErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(context.Context) error {
	close(s.stop)
	return s.shutdownErr
}

func TestHTTPServerService_ServerErrors(t *testing.T) {
	t.Run("serve failure", func(t *testing.T) {
		svc := NewHTTPServerService(&stubServer{serveErr: errors.New("accept: too many open files")}, "127.0.0.1:0", time.Second, zerolog.Nop())
		if err := svc.Serve(context.Background()); err == nil {
			t.Error("Serve() should surface the server error")
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		stub := &stubServer{shutdownErr: context.DeadlineExceeded, stop: make(chan struct{})}
		svc := NewHTTPServerService(stub, "127.0.0.1:0", time.Second, zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()
		waitBound(t, svc)
		cancel()
		if err := <-done; !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want shutdown error", err)
		}
	})
}

func TestHTTPServerService_UnderSupervisor(t *testing.T) {
	server := &http.Server{Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	svc := NewHTTPServerService(server, "127.0.0.1:0", time.Second, zerolog.Nop())

	sup := suture.NewSimple("test")
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)
	waitBound(t, svc)
	cancel()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}
