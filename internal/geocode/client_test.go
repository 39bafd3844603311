package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/electronjoe/sitestamp/internal/config"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

func newTestClient(t *testing.T, endpoint string, timeout time.Duration) (*Client, string) {
	t.Helper()
	cachePath := filepath.Join(t.TempDir(), "cache", "geocode.json")
	c, err := New(config.Geocode{
		Endpoint:  endpoint,
		Timeout:   timeout,
		UserAgent: "sitestamp-test",
		CachePath: cachePath,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, cachePath
}

func TestLookupAndCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if got := r.Header.Get("User-Agent"); got != "sitestamp-test" {
			t.Errorf("User-Agent = %q", got)
		}
		q := r.URL.Query()
		if q.Get("lat") != "-6.323015" || q.Get("lon") != "107.055986" || q.Get("format") != "jsonv2" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"Jalan Raya Setu, Bekasi"}`))
	}))
	defer srv.Close()

	c, cachePath := newTestClient(t, srv.URL, time.Second)
	for i := 0; i < 3; i++ {
		addr, err := c.Lookup(context.Background(), -6.323015, 107.055986)
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if addr != "Jalan Raya Setu, Bekasi" {
			t.Errorf("addr = %q", addr)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A fresh client answers from the persisted cache without the server.
	srv.Close()
	c2, err := New(config.Geocode{Endpoint: srv.URL, Timeout: time.Second, CachePath: cachePath}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	addr, err := c2.Lookup(context.Background(), -6.323015, 107.055986)
	if err != nil || addr != "Jalan Raya Setu, Bekasi" {
		t.Errorf("cached Lookup = %q, %v", addr, err)
	}
}

func TestLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 20*time.Millisecond)
	_, err := c.Lookup(context.Background(), 1, 2)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if got := c.Resolve(context.Background(), 1, 2); got != stamp.UnknownAddress {
		t.Errorf("Resolve = %q, want placeholder", got)
	}
}

func TestLookupUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, cachePath := newTestClient(t, srv.URL, time.Second)
	for i := 0; i < 3; i++ {
		if _, err := c.Lookup(context.Background(), 1, 2); !errors.Is(err, ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times for one failing coordinate, want 1", n)
	}
	if _, err := c.Lookup(context.Background(), 3, 4); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server called %d times, want 2 after a new coordinate", n)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	reloaded, err := LoadCache(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 0 {
		t.Errorf("failure was written to the cache file")
	}
}

func TestLookupCancelledNotRemembered(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"display_name":"Somewhere"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Lookup(ctx, 1, 2); err == nil {
		t.Fatal("cancelled lookup succeeded")
	}
	addr, err := c.Lookup(context.Background(), 1, 2)
	if err != nil || addr != "Somewhere" {
		t.Errorf("Lookup after cancel = %q, %v", addr, err)
	}
}

func TestLookupNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, time.Second)
	if _, err := c.Lookup(context.Background(), 0, 0); !errors.Is(err, ErrNoResult) {
		t.Errorf("err = %v, want ErrNoResult", err)
	}
}

func TestLoadCacheVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	c, err := LoadCache(path)
	if err != nil {
		t.Fatal(err)
	}
	c.Set(1, 2, "somewhere")
	c.data.Version = 99
	if err := c.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 0 {
		t.Errorf("stale cache version kept %d entries", reloaded.Len())
	}
}
