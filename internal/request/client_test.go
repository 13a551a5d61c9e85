package request

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestFetchBytesVerifiesSHA1Mismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New(Config{}, zerolog.Nop())
	_, err := c.FetchBytes(context.Background(), Request{
		Method:       http.MethodGet,
		URL:          srv.URL,
		ExpectedSHA1: "0000000000000000000000000000000000000",
	})
	if err == nil {
		t.Fatal("expected hash mismatch error")
	}
}

func TestFetchBytesSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New(Config{}, zerolog.Nop())
	data, err := c.FetchBytes(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
}

type captureSink struct{ total int64 }

func (c *captureSink) Credit(n int64) { c.total += n }

func TestFetchBytesWithProgressCreditsSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), 100))
	}))
	defer srv.Close()

	c := New(Config{}, zerolog.Nop())
	var buf bytes.Buffer
	sink := &captureSink{}
	sha, err := c.FetchBytesWithProgress(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, &buf, sink)
	if err != nil {
		t.Fatal(err)
	}
	if sink.total != 100 {
		t.Fatalf("expected sink credited 100 bytes, got %d", sink.total)
	}
	if sha == "" {
		t.Fatal("expected non-empty sha1")
	}
}
