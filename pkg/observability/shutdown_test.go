package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdownManager_RunsFuncsAfterServers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	srv := &http.Server{Handler: http.NotFoundHandler()}
	go srv.Serve(ln)

	sm := NewShutdownManager(NopLogger(), time.Second, srv)

	var calls atomic.Int32
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	if err := sm.Shutdown(); err != nil {
		t.Fatalf("Expected clean shutdown, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 shutdown funcs to run, got %d", calls.Load())
	}
	if _, err := http.Get("http://" + ln.Addr().String()); err == nil {
		t.Error("Expected server to be closed")
	}
}

func TestShutdownManager_AggregatesErrors(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), time.Second)
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return errors.New("first") })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return errors.New("second") })

	err := sm.Shutdown()
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "first") || !strings.Contains(err.Error(), "second") {
		t.Errorf("Expected both errors, got %v", err)
	}
}

func TestShutdownManager_Timeout(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), 20*time.Millisecond)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	err := sm.Shutdown()
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("Expected timeout error, got %v", err)
	}
}

func TestShutdownManager_WaitForShutdownOnContext(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sm.WaitForShutdown(ctx); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
