package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestClient(t *testing.T, opts Options) (*Client, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts.Logger = logger
	return NewClient(opts), hook
}

// dropConnection closes the connection without writing a response.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Fatal("response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		t.Fatalf("hijack: %v", err)
	}
	conn.Close()
}

func TestDoFormBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("unexpected basic auth: %q %q %v", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("platform") != "windows" {
			t.Errorf("expected platform=windows, got %q", r.PostForm.Get("platform"))
		}
		io.WriteString(w, "<html>ok</html>")
	}))
	defer server.Close()

	client, _ := newTestClient(t, DefaultOptions())
	resp, err := client.Do(context.Background(), Request{
		Method:   http.MethodPost,
		URL:      server.URL + "/generator",
		Body:     url.Values{"platform": {"windows"}},
		BodyType: BodyForm,
		Auth:     &Credentials{Username: "admin", Password: "secret"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Text() != "<html>ok</html>" {
		t.Errorf("unexpected body %q", resp.Text())
	}
	if err := resp.Err(); err != nil {
		t.Errorf("unexpected status error: %v", err)
	}
}

func TestDoJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["appname"] != "demo" {
			t.Errorf("unexpected body %v", body)
		}
	}))
	defer server.Close()

	client, _ := newTestClient(t, DefaultOptions())
	_, err := client.Do(context.Background(), Request{
		Method:   http.MethodPost,
		URL:      server.URL,
		Body:     map[string]string{"appname": "demo"},
		BodyType: BodyJSON,
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestDoUnknownBodyType(t *testing.T) {
	client, _ := newTestClient(t, DefaultOptions())
	_, err := client.Do(context.Background(), Request{
		Method:   http.MethodPost,
		URL:      "http://127.0.0.1:1",
		Body:     "x",
		BodyType: BodyType("xml"),
	})
	if !errors.Is(err, ErrUnknownBodyType) {
		t.Errorf("expected ErrUnknownBodyType, got %v", err)
	}
}

func TestDoDoesNotRetryHTTPErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "busy")
	}))
	defer server.Close()

	client, _ := newTestClient(t, DefaultOptions())
	resp, err := client.Do(context.Background(), Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}

	var statusErr *StatusError
	if !errors.As(resp.Err(), &statusErr) {
		t.Fatalf("expected *StatusError, got %v", resp.Err())
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", statusErr.Code)
	}
	if statusErr.Error() != "HTTP 503: busy" {
		t.Errorf("unexpected message %q", statusErr.Error())
	}
}

func TestDoRetriesTransportFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			dropConnection(t, w)
			return
		}
		io.WriteString(w, "done")
	}))
	defer server.Close()

	client, hook := newTestClient(t, DefaultOptions())
	resp, err := client.Do(context.Background(), Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Text() != "done" {
		t.Errorf("unexpected body %q", resp.Text())
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
	if len(hook.AllEntries()) != 2 {
		t.Errorf("expected 2 logged failures, got %d", len(hook.AllEntries()))
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	client, hook := newTestClient(t, DefaultOptions())
	resp, err := client.Do(context.Background(), Request{URL: target})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if resp != nil {
		t.Error("expected no response after exhausting retries")
	}
	if len(hook.AllEntries()) != 5 {
		t.Errorf("expected 5 logged attempts, got %d", len(hook.AllEntries()))
	}
	if hook.LastEntry().Message == "" || hook.LastEntry().Level != logrus.WarnLevel {
		t.Errorf("unexpected last entry: %+v", hook.LastEntry())
	}
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filename") == "missing.exe" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "binary-data")
	}))
	defer server.Close()

	client, _ := newTestClient(t, DefaultOptions())

	body, err := client.Stream(context.Background(), server.URL+"/download?filename=app.exe&uuid=1", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "binary-data" {
		t.Errorf("unexpected data %q", data)
	}

	_, err = client.Stream(context.Background(), server.URL+"/download?filename=missing.exe&uuid=1", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 *StatusError, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client, hook := newTestClient(t, DefaultOptions())
	_, err := client.Do(ctx, Request{URL: server.URL})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
	if len(hook.AllEntries()) != 0 {
		t.Errorf("cancellation should not be logged as a retry, got %d entries", len(hook.AllEntries()))
	}
}

func TestBackoffDisabledByDefault(t *testing.T) {
	client, _ := newTestClient(t, DefaultOptions())
	start := time.Now()
	if err := client.backoff(context.Background(), 3); err != nil {
		t.Fatalf("backoff: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("expected immediate retry without configured backoff")
	}
}
