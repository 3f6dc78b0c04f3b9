package ai

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + jsonString(content) + `}}]}`
}

func jsonString(s string) string {
	// Good enough for test payloads without quotes or control characters.
	return `"` + s + `"`
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(completionBody("hello")))
	}))
	defer srv.Close()

	c := New("test-key", "test-model", discardLogger(), WithEndpoint(srv.URL))

	got, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestComplete_Disabled(t *testing.T) {
	c := New("", "test-model", discardLogger())

	if c.Enabled() {
		t.Error("client with empty key should be disabled")
	}

	_, err := c.Complete(context.Background(), Request{})
	if err != ErrDisabled {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(completionBody("recovered")))
	}))
	defer srv.Close()

	c := New("test-key", "test-model", discardLogger(), WithEndpoint(srv.URL))

	got, err := c.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q", got)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestComplete_DoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := New("test-key", "test-model", discardLogger(), WithEndpoint(srv.URL))

	_, err := c.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry for 4xx)", calls.Load())
	}
}

func TestComplete_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("test-key", "test-model", discardLogger(), WithEndpoint(srv.URL), WithMaxRetries(2))

	_, err := c.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	// 1 initial attempt + 2 retries.
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(completionBody("too late")))
	}))
	defer srv.Close()

	c := New("test-key", "test-model", discardLogger(),
		WithEndpoint(srv.URL), WithTimeout(20*time.Millisecond), WithMaxRetries(0))

	_, err := c.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New("test-key", "test-model", discardLogger(), WithEndpoint(srv.URL))

	_, err := c.Complete(context.Background(), Request{})
	if err != ErrEmptyResponse {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}
