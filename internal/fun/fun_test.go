package fun

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/go-streak-bot/internal/cache"
)

func server(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestMeme_CachedPerUser(t *testing.T) {
	srv, hits := server(t, 200, `{"title":"lol","url":"https://i/x.png","ups":7,"subreddit":"ProgrammerHumor"}`)
	c := New(cache.NewMemory(10), time.Minute)
	c.MemeURL = srv.URL

	for i := 0; i < 3; i++ {
		m, err := c.Meme(context.Background(), "u1")
		if err != nil || m.URL != "https://i/x.png" || m.Ups != 7 {
			t.Fatalf("meme: %+v %v", m, err)
		}
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("upstream hits: got %d want 1", *hits)
	}
	if _, err := c.Meme(context.Background(), "u2"); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(hits) != 2 {
		t.Fatalf("other user should miss the cache")
	}
}

func TestQuote_UpstreamError(t *testing.T) {
	srv, _ := server(t, 503, `oops`)
	c := New(nil, time.Minute)
	c.QuoteURL = srv.URL
	if _, err := c.Quote(context.Background(), "u1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v", err)
	}
}

func TestJoke_TwoPartAndEmpty(t *testing.T) {
	srv, _ := server(t, 200, `{"type":"twopart","setup":"Why?","delivery":"Because."}`)
	c := New(nil, time.Minute)
	c.JokeURL = srv.URL
	j, err := c.Joke(context.Background(), "u1")
	if err != nil || j.Setup != "Why?" || j.Delivery != "Because." {
		t.Fatalf("joke: %+v %v", j, err)
	}

	empty, _ := server(t, 200, `{"type":"single"}`)
	c.JokeURL = empty.URL
	if _, err := c.Joke(context.Background(), "u2"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("empty joke: %v", err)
	}
}

func TestFetch_BadJSON(t *testing.T) {
	srv, _ := server(t, 200, `not json`)
	c := New(nil, time.Minute)
	c.MemeURL = srv.URL
	if _, err := c.Meme(context.Background(), "u1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v", err)
	}
}
