package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vors-gg/vors/internal/shared"
)

// queueAPI records queue additions and fails the URIs it is told to fail.
// It also tracks whether calls ever overlap.
type queueAPI struct {
	mu         sync.Mutex
	uris       []string
	failURIs   map[string]bool
	inFlight   int
	overlapped bool
}

func (a *queueAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/me/player/queue" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		a.mu.Lock()
		a.inFlight++
		if a.inFlight > 1 {
			a.overlapped = true
		}
		uri := r.URL.Query().Get("uri")
		a.uris = append(a.uris, uri)
		fail := a.failURIs[uri]
		a.mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		a.mu.Lock()
		a.inFlight--
		a.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestQueueManager(t *testing.T) {
	t.Run("Batch Accounting", func(t *testing.T) {
		api := &queueAPI{failURIs: map[string]bool{"uriB": true}}
		srv := httptest.NewServer(api.handler())
		defer srv.Close()

		client, jar := newTestClient(t, srv.URL, "http://127.0.0.1:0")
		qm := NewQueueManager(client, 10*time.Millisecond, shared.NewLogger(io.Discard))

		start := time.Now()
		result := qm.QueueTracks(context.Background(), jar, []string{"uriA", "uriB", "uriC"})
		elapsed := time.Since(start)

		if result.Successful != 2 || result.Failed != 1 {
			t.Errorf("expected {successful:2 failed:1}, got %+v", result)
		}
		if len(result.FailedURIs) != 1 || result.FailedURIs[0] != "uriB" {
			t.Errorf("expected failed URI uriB, got %v", result.FailedURIs)
		}

		api.mu.Lock()
		defer api.mu.Unlock()
		if len(api.uris) != 3 {
			t.Fatalf("expected 3 queue calls, got %d", len(api.uris))
		}
		for i, want := range []string{"uriA", "uriB", "uriC"} {
			if api.uris[i] != want {
				t.Errorf("call %d: expected %s, got %s", i, want, api.uris[i])
			}
		}
		if api.overlapped {
			t.Error("queue calls overlapped; batch must be strictly sequential")
		}
		// First call is immediate, the next two each wait out the pacing.
		if elapsed < 20*time.Millisecond {
			t.Errorf("batch finished in %v, expected pacing of at least 20ms", elapsed)
		}
	})

	t.Run("Single Track Pass-Through", func(t *testing.T) {
		api := &queueAPI{}
		srv := httptest.NewServer(api.handler())
		defer srv.Close()

		client, jar := newTestClient(t, srv.URL, "http://127.0.0.1:0")
		qm := NewQueueManager(client, 10*time.Millisecond, shared.NewLogger(io.Discard))

		if err := qm.QueueTrack(context.Background(), jar, "uriA"); err != nil {
			t.Fatalf("QueueTrack failed: %v", err)
		}
		if err := qm.QueueTrack(context.Background(), jar, ""); err == nil {
			t.Error("expected error for empty URI")
		}
	})

	t.Run("Cancelled Context Counts Remainder As Failed", func(t *testing.T) {
		api := &queueAPI{}
		srv := httptest.NewServer(api.handler())
		defer srv.Close()

		client, jar := newTestClient(t, srv.URL, "http://127.0.0.1:0")
		qm := NewQueueManager(client, 50*time.Millisecond, shared.NewLogger(io.Discard))

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		result := qm.QueueTracks(ctx, jar, []string{"uriA", "uriB", "uriC"})
		if result.Successful+result.Failed != 3 {
			t.Errorf("every item must be accounted for, got %+v", result)
		}
		if result.Failed == 0 {
			t.Errorf("expected cancelled items to count as failed, got %+v", result)
		}
	})
}
