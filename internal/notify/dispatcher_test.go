package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotifyCompletionPostsEventJSON(t *testing.T) {
	var (
		calls       int
		gotMethod   string
		gotType     string
		gotEvent    CompletionEvent
		completedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotEvent); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL)
	err := d.NotifyCompletion(context.Background(), CompletionEvent{
		TaskID:      "note-1",
		Title:       "Buy milk",
		Content:     "2 liters",
		CompletedAt: completedAt,
		UserID:      "user-1",
		UserEmail:   "avery@example.com",
		UserName:    "Avery",
	})
	if err != nil {
		t.Fatalf("NotifyCompletion() error = %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotType != "application/json" {
		t.Fatalf("expected application/json content type, got %q", gotType)
	}
	if gotEvent.TaskID != "note-1" || gotEvent.UserEmail != "avery@example.com" {
		t.Fatalf("unexpected event payload: %+v", gotEvent)
	}
	if !gotEvent.CompletedAt.Equal(completedAt) {
		t.Fatalf("expected completedAt %v, got %v", completedAt, gotEvent.CompletedAt)
	}
}

func TestNotifyCompletionTreatsAnyResponseAsDelivered(t *testing.T) {
	for _, status := range []int{200, 204, 404, 500} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		d := NewDispatcher(server.URL)
		if err := d.NotifyCompletion(context.Background(), CompletionEvent{TaskID: "note-1"}); err != nil {
			t.Errorf("status %d: NotifyCompletion() error = %v", status, err)
		}
		server.Close()
	}
}

func TestNotifyCompletionReportsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	d := NewDispatcher(server.URL)
	if err := d.NotifyCompletion(context.Background(), CompletionEvent{TaskID: "note-1"}); err == nil {
		t.Fatal("expected transport failure, got nil")
	}
}

func TestNotifyCompletionRequiresEndpoint(t *testing.T) {
	d := NewDispatcher("")
	if d.IsConfigured() {
		t.Fatal("expected unconfigured dispatcher")
	}
	if err := d.NotifyCompletion(context.Background(), CompletionEvent{TaskID: "note-1"}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestNotifyCompletionIsOneShot(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL)
	_ = d.NotifyCompletion(context.Background(), CompletionEvent{TaskID: "note-1"})
	if calls != 1 {
		t.Fatalf("expected no retries, got %d calls", calls)
	}
}
