package devicesync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/easybuilders/merchantpro_backend/models"
)

type memQueueStore struct {
	mu      sync.Mutex
	nextId  int
	actions []OfflineAction
}

func (s *memQueueStore) Enqueue(_ context.Context, action *OfflineAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	action.ID = s.nextId
	if action.Status == "" {
		action.Status = ActionStatusPending
	}
	s.actions = append(s.actions, *action)
	return nil
}

func (s *memQueueStore) Pending(_ context.Context, limit int) ([]OfflineAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OfflineAction, 0, limit)
	for _, a := range s.actions {
		if a.Status != ActionStatusPending {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memQueueStore) Ack(_ context.Context, ids []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := map[int]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.actions[:0]
	for _, a := range s.actions {
		if !drop[a.ID] {
			kept = append(kept, a)
		}
	}
	s.actions = kept
	return nil
}

func (s *memQueueStore) Fail(_ context.Context, id int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.actions {
		if s.actions[i].ID == id {
			s.actions[i].Attempts++
			s.actions[i].LastError = message
			if s.actions[i].Attempts >= maxFlushAttempts {
				s.actions[i].Status = ActionStatusFailed
			}
		}
	}
	return nil
}

func (s *memQueueStore) Failed(_ context.Context) ([]OfflineAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OfflineAction
	for _, a := range s.actions {
		if a.Status == ActionStatusFailed {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memQueueStore) Len(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.actions {
		if a.Status == ActionStatusPending {
			n++
		}
	}
	return n, nil
}

func enqueueCustomer(t *testing.T, c *Client, name string) {
	t.Helper()
	if _, err := c.Enqueue(context.Background(), models.SyncActionCreate, models.SyncEntityCustomer, 0, map[string]string{"name": name}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func TestFlushAcksProcessedAndKeepsRejected(t *testing.T) {
	var gotReq SyncRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(SyncResponse{
			Success:   true,
			Processed: 2,
			Errors:    []SyncItemError{{Index: 1, Error: "invalid email"}},
		})
	}))
	defer srv.Close()

	store := &memQueueStore{}
	client := NewClient(store, "till-7", srv.URL)
	enqueueCustomer(t, client, "Thabo")
	enqueueCustomer(t, client, "Lindiwe")
	enqueueCustomer(t, client, "Sipho")

	resp, err := client.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if resp.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", resp.Processed)
	}
	if gotReq.DeviceId != "till-7" || len(gotReq.Queue) != 3 {
		t.Fatalf("unexpected upload: device=%q items=%d", gotReq.DeviceId, len(gotReq.Queue))
	}
	for _, item := range gotReq.Queue {
		if item.ClientKey == "" {
			t.Fatal("queued items must carry client keys")
		}
	}

	remaining, _ := store.Len(context.Background())
	if remaining != 1 {
		t.Fatalf("expected 1 rejected item kept, got %d", remaining)
	}
	pending, _ := store.Pending(context.Background(), 10)
	if pending[0].Attempts != 1 || pending[0].LastError != "invalid email" {
		t.Fatalf("rejected item not marked: %+v", pending[0])
	}
}

func TestFlushKeepsQueueOnServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := &memQueueStore{}
	client := NewClient(store, "till-7", srv.URL)
	enqueueCustomer(t, client, "Thabo")

	if _, err := client.Flush(context.Background()); err == nil {
		t.Fatal("expected error from 503 response")
	}
	remaining, _ := store.Len(context.Background())
	if remaining != 1 {
		t.Fatalf("failed flush must keep the queue, got %d items", remaining)
	}
}

func TestFlushIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(SyncResponse{Success: true, Processed: 1, Errors: []SyncItemError{}})
	}))
	defer srv.Close()

	store := &memQueueStore{}
	client := NewClient(store, "till-7", srv.URL)
	enqueueCustomer(t, client, "Thabo")

	firstDone := make(chan error, 1)
	go func() {
		_, err := client.Flush(context.Background())
		firstDone <- err
	}()

	// Wait until the first flush is inside the HTTP call.
	for !client.flushing.Load() {
	}

	if _, err := client.Flush(context.Background()); err != ErrFlushInProgress {
		t.Fatalf("expected ErrFlushInProgress, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first flush failed: %v", err)
	}
}

func TestExhaustedActionsTurnFailedAndStopFlushing(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_ = json.NewEncoder(w).Encode(SyncResponse{
			Success:   true,
			Processed: 0,
			Errors:    []SyncItemError{{Index: 0, Error: "invalid email"}},
		})
	}))
	defer srv.Close()

	store := &memQueueStore{}
	client := NewClient(store, "till-7", srv.URL)
	enqueueCustomer(t, client, "Thabo")

	// The action is one rejection away from its attempt cap.
	store.actions[0].Attempts = maxFlushAttempts - 1

	if _, err := client.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	failed, err := client.Failed(context.Background())
	if err != nil {
		t.Fatalf("Failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Status != ActionStatusFailed || failed[0].Attempts != maxFlushAttempts {
		t.Fatalf("expected one terminally failed action, got %+v", failed)
	}
	if n, _ := store.Len(context.Background()); n != 0 {
		t.Fatalf("failed actions must not count as queued, got %d", n)
	}

	// Connectivity events after exhaustion are true no-ops.
	resp, err := client.NotifyOnline(context.Background())
	if err != nil || !resp.Success {
		t.Fatalf("NotifyOnline: %v %+v", err, resp)
	}
	if requests != 1 {
		t.Fatalf("expected no upload after exhaustion, got %d requests", requests)
	}
}

func TestFlushEmptyQueueIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(&memQueueStore{}, "till-7", srv.URL)
	resp, err := client.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if called {
		t.Fatal("empty queue must not hit the network")
	}
	if !resp.Success || resp.Processed != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
