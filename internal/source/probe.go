// Package source resolves a dataset's raw payload from an ordered list
// of candidate locations. Candidates are tried strictly in order; the
// first one that yields a non-empty body wins and later candidates are
// never touched. Exhausting the list is not a failure in the error
// sense — it returns ErrNotFound, which callers treat as the signal to
// fall back to synthetic data.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrNotFound is returned when every candidate fails. It is a routine
// control-flow value, not a fault: check with errors.Is and fall back.
var ErrNotFound = errors.New("no candidate source available")

const defaultMaxPayloadBytes = 8 << 20

// Prober fetches raw payloads from candidate locations. A candidate is
// either an http(s) URL or a local file path. Safe for concurrent use.
type Prober struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewProber creates a prober whose individual attempts time out after
// timeout and whose payloads are capped at maxBytes (0 means the
// default cap).
func NewProber(timeout time.Duration, maxBytes int64) *Prober {
	if maxBytes <= 0 {
		maxBytes = defaultMaxPayloadBytes
	}
	return &Prober{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// Probe tries each candidate in order and returns the first non-empty
// payload along with the candidate that produced it. Transport errors,
// non-2xx responses, timeouts, and empty bodies all count as that
// candidate failing; the failure is logged and the next candidate is
// tried. When every candidate fails, Probe returns ErrNotFound.
func (p *Prober) Probe(ctx context.Context, candidates []string) ([]byte, string, error) {
	for _, cand := range candidates {
		data, err := p.fetch(ctx, cand)
		if err != nil {
			log.Printf("[probe] %s: %v", cand, err)
			continue
		}
		if len(data) == 0 {
			log.Printf("[probe] %s: empty payload", cand)
			continue
		}
		return data, cand, nil
	}
	return nil, "", ErrNotFound
}

func (p *Prober) fetch(ctx context.Context, candidate string) ([]byte, error) {
	if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		return p.fetchURL(ctx, candidate)
	}
	return p.readFile(candidate)
}

func (p *Prober) fetchURL(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("payload exceeds %d bytes", p.maxBytes)
	}
	return data, nil
}

func (p *Prober) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > p.maxBytes {
		return nil, fmt.Errorf("payload exceeds %d bytes", p.maxBytes)
	}
	return os.ReadFile(path)
}
