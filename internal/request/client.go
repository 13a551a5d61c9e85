// Package request implements §4.3: a bounded, retrying HTTP client with
// separate semaphores for background downloads and interactive API calls,
// sha1 body verification, and progress-crediting streaming reads.
// Generalizes the teacher's bare http.Get calls
// (src/downloader/downloader.go, src/utils/utils.go) by wrapping
// github.com/hashicorp/go-retryablehttp for the exponential-backoff retry
// spec.md calls for.
package request

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/events"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const maxAttempts = 5

// Config tunes the client's concurrency gates.
type Config struct {
	FetchConcurrency int
	APIConcurrency   int
}

// Client is the shared, process-wide request gateway.
type Client struct {
	http           *retryablehttp.Client
	fetchSemaphore *semaphore.Weighted
	apiSemaphore   *semaphore.Weighted
	log            zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Client {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 10
	}
	if cfg.APIConcurrency <= 0 {
		cfg.APIConcurrency = 4
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = maxAttempts - 1 // RetryMax counts retries after the first attempt
	rc.Logger = nil // the corpus routes all logging through zerolog, not the library's own logger
	rc.HTTPClient.Timeout = 0
	if t, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
		t.DisableKeepAlives = false
	}

	return &Client{
		http:           rc,
		fetchSemaphore: semaphore.NewWeighted(int64(cfg.FetchConcurrency)),
		apiSemaphore:   semaphore.NewWeighted(int64(cfg.APIConcurrency)),
		log:            log,
	}
}

// Request describes one call; Background selects the fetch semaphore
// (bulk downloads) over the api semaphore (interactive calls).
type Request struct {
	Method     string
	URL        string
	Body       io.Reader
	Headers    map[string]string
	Background bool
	// ExpectedSHA1, if non-empty, is verified against the downloaded body;
	// a mismatch returns domainerr.KindHashMismatch without retrying.
	ExpectedSHA1 string
}

func (c *Client) acquire(ctx context.Context, background bool) (func(), error) {
	sem := c.apiSemaphore
	if background {
		sem = c.fetchSemaphore
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// FetchBytes performs req and returns the full response body.
func (c *Client) FetchBytes(ctx context.Context, req Request) ([]byte, error) {
	release, err := c.acquire(ctx, req.Background)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerr.Wrap(domainerr.KindNetworkUnreachable, req.URL, err)
	}
	if req.ExpectedSHA1 != "" {
		if err := verifySHA1(data, req.ExpectedSHA1); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// FetchJSON performs req and decodes the body into a T.
func FetchJSON[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	data, err := c.FetchBytes(ctx, req)
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, domainerr.Wrap(domainerr.KindCorrupted, req.URL, err)
	}
	return v, nil
}

// ProgressSink receives byte counts as a streamed download proceeds.
type ProgressSink interface {
	Credit(n int64)
}

// FetchBytesWithProgress streams the body to w, crediting totalProgress
// fractionally onto sink as bytes arrive, and returning the sha1 of
// everything written.
func (c *Client) FetchBytesWithProgress(ctx context.Context, req Request, w io.Writer, sink ProgressSink) (string, error) {
	release, err := c.acquire(ctx, req.Background)
	if err != nil {
		return "", err
	}
	defer release()

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	h := sha1.New()
	mw := io.MultiWriter(w, h)
	pr := &progressReader{r: resp.Body, sink: sink}
	if _, err := io.Copy(mw, pr); err != nil {
		return "", domainerr.Wrap(domainerr.KindNetworkUnreachable, req.URL, err)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if req.ExpectedSHA1 != "" && sum != req.ExpectedSHA1 {
		return sum, domainerr.WithField(domainerr.WithField(
			domainerr.New(domainerr.KindHashMismatch, req.URL), "expected", req.ExpectedSHA1), "actual", sum)
	}
	return sum, nil
}

func (c *Client) do(ctx context.Context, req Request) (*http.Response, error) {
	var body io.ReadSeeker
	if rs, ok := req.Body.(io.ReadSeeker); ok {
		body = rs
	}
	var rr *retryablehttp.Request
	var err error
	if body != nil {
		rr, err = retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	} else {
		rr, err = retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	}
	if err != nil {
		return nil, domainerr.Wrap(domainerr.KindNetworkUnreachable, req.URL, err)
	}
	for k, v := range req.Headers {
		rr.Header.Set(k, v)
	}

	resp, err := c.http.Do(rr)
	if err != nil {
		return nil, domainerr.Wrap(domainerr.KindNetworkUnreachable, req.URL, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, domainerr.Wrap(domainerr.KindNetworkUnreachable, fmt.Sprintf("%s: status %d", req.URL, resp.StatusCode), nil)
	}
	return resp, nil
}

func verifySHA1(data []byte, expected string) error {
	h := sha1.Sum(data)
	actual := hex.EncodeToString(h[:])
	if actual != expected {
		return domainerr.WithField(domainerr.WithField(
			domainerr.New(domainerr.KindHashMismatch, "body"), "expected", expected), "actual", actual)
	}
	return nil
}

type progressReader struct {
	r    io.Reader
	sink ProgressSink
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.sink != nil {
		p.sink.Credit(int64(n))
	}
	return n, err
}

// ByteProgressSink adapts a fixed total-byte-count download onto an
// events.ProgressTracker bar, crediting totalProgress/totalBytes per byte.
type ByteProgressSink struct {
	Tracker      *events.ProgressTracker
	BarID        string
	TotalBytes   int64
	TotalProgress float64
}

func (s *ByteProgressSink) Credit(n int64) {
	if s.TotalBytes <= 0 {
		return
	}
	delta := s.TotalProgress * float64(n) / float64(s.TotalBytes)
	s.Tracker.Emit(s.BarID, delta, nil)
}
