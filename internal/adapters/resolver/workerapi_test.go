package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yt-dl-bot/internal/domain"
)

func TestWorkerAPIResolve(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": true, "title": "T", "thumbnail": "https://i.ytimg.com/t.jpg",
			"audio": "https://cdn/a.mp3", "videos": {"360": "u360", "720p": "u720", "4320": "u8k", "480": ""}}`))
	}))
	defer srv.Close()

	r := NewWorkerAPI(srv.URL+"/", time.Second)
	res, err := r.Resolve(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotURL != "https://youtu.be/abc123" {
		t.Fatalf("link not passed as query param: %q", gotURL)
	}
	if !res.Status || res.Title != "T" || res.AudioURL != "https://cdn/a.mp3" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Videos) != 2 || res.Videos[domain.Quality360] != "u360" || res.Videos[domain.Quality720] != "u720" {
		t.Fatalf("unexpected videos: %v", res.Videos)
	}
}

func TestWorkerAPIStatusFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": false}`))
	}))
	defer srv.Close()

	res, err := NewWorkerAPI(srv.URL, time.Second).Resolve(context.Background(), "https://youtu.be/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status {
		t.Fatal("expected status=false")
	}
}

func TestWorkerAPIHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWorkerAPI(srv.URL, time.Second).Resolve(context.Background(), "https://youtu.be/x")
	if !errors.Is(err, domain.ErrResolveFailed) {
		t.Fatalf("expected ErrResolveFailed, got %v", err)
	}
}

func TestWorkerAPITimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewWorkerAPI(srv.URL, 50*time.Millisecond).Resolve(context.Background(), "https://youtu.be/x")
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
