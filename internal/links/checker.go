// Package links probes URLs over HTTP and reports which of them resolve.
// The control loop sees a single synchronous result per batch; the fan-out
// inside a batch is an internal detail.
package links

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/courseforge/courseforge/internal/config"
)

const userAgent = "courseforge/1.0 link-checker"

// UnavailableError reports that the verifier itself could not complete a
// batch (network or provider outage). Callers fail closed on it: no entry
// may be treated as verified.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("links: verifier unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Result is the outcome of probing one URL.
type Result struct {
	URL    string
	OK     bool
	Status int
	Err    string
}

// paywalledDomains lists scholarly hosts where a 403 to an automated probe
// does not mean the link is broken for a student.
var paywalledDomains = []string{
	"ieee.org",
	"acm.org",
	"springer.com",
	"sciencedirect.com",
	"jstor.org",
	"wiley.com",
	"nature.com",
	"science.org",
	"arxiv.org",
}

// Checker verifies URLs with a HEAD-then-GET probe and bounded concurrency.
type Checker struct {
	client        *http.Client
	maxConcurrent int
	log           *zap.Logger
}

// NewChecker builds a Checker from the link verifier settings.
func NewChecker(cfg config.LinksConfig, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		client:        &http.Client{Timeout: cfg.Timeout},
		maxConcurrent: cfg.MaxConcurrent,
		log:           log,
	}
}

// Verify probes each URL once and reports url -> ok. It returns an
// *UnavailableError when the batch as a whole could not be checked: the
// context ended, or every probe in a non-empty batch died at the transport
// layer without receiving any HTTP status (no network, most likely).
func (c *Checker) Verify(ctx context.Context, urls []string) (map[string]bool, error) {
	results, err := c.Check(ctx, urls)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(results))
	for _, r := range results {
		out[r.URL] = r.OK
	}
	return out, nil
}

// Check probes each URL and returns per-URL detail in input order.
func (c *Checker) Check(ctx context.Context, urls []string) ([]Result, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Err: err}
	}

	results := make([]Result, len(urls))
	sem := make(chan struct{}, c.maxSlots())
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = c.checkOne(ctx, target)
		}(i, url)
	}
	wg.Wait()

	transportFailures := 0
	for _, r := range results {
		if r.Status == 0 && r.Err != "" {
			transportFailures++
		}
	}
	if transportFailures == len(results) {
		c.log.Warn("link verification batch unreachable", zap.Int("urls", len(urls)))
		return nil, &UnavailableError{Err: fmt.Errorf("all %d probes failed without a response", len(urls))}
	}
	return results, nil
}

func (c *Checker) checkOne(ctx context.Context, url string) Result {
	status, err := c.probe(ctx, http.MethodHead, url)
	if err != nil || status >= 400 {
		// Some hosts reject HEAD outright; retry the slow way.
		getStatus, getErr := c.probe(ctx, http.MethodGet, url)
		if getErr == nil {
			status, err = getStatus, nil
		} else if err == nil {
			err = getErr
		}
	}
	if err != nil {
		return Result{URL: url, Err: err.Error()}
	}
	ok := status >= 200 && status < 300
	if status == http.StatusForbidden && isPaywalled(url) {
		ok = true
	}
	return Result{URL: url, OK: ok, Status: status}
}

func (c *Checker) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Checker) maxSlots() int {
	if c.maxConcurrent <= 0 {
		return 1
	}
	return c.maxConcurrent
}

func isPaywalled(url string) bool {
	lowered := strings.ToLower(url)
	for _, domain := range paywalledDomains {
		if strings.Contains(lowered, domain) {
			return true
		}
	}
	return false
}

// DefaultTimeout is the probe timeout used when configuration is absent.
const DefaultTimeout = 15 * time.Second
