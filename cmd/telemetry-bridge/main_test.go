package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testBridge(ingestURL string, queueSize, workers int) *bridge {
	return newBridge(config{
		ingestURL: ingestURL,
		queueSize: queueSize,
		workers:   workers,
	})
}

func TestWorkersDrainQueueAfterClose(t *testing.T) {
	var forwarded atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	b := testBridge(srv.URL, 16, 4)
	wg := b.startWorkers(context.Background())

	const n = 8
	for i := 0; i < n; i++ {
		b.queue <- []byte(fmt.Sprintf(`{"orderId":"ORD%08d","temperature":18.5,"gasLevel":40}`, i))
	}
	close(b.queue)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not drain the queue")
	}

	if got := forwarded.Load(); got != n {
		t.Fatalf("expected %d readings forwarded during drain, got %d", n, got)
	}
}

func TestForwardGivesUpOnClientError(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	b := testBridge(srv.URL, 1, 1)
	if err := b.forward(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected an error for a rejected payload")
	}
	if hits.Load() != 1 {
		t.Fatalf("a 4xx must not be retried, got %d attempts", hits.Load())
	}
}

func TestForwardRetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	b := testBridge(srv.URL, 1, 1)
	if err := b.forward(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("expected eventual success after 5xx retries, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}
