// scraper/fetcher.go
package scraper

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// FetchStatus reports how a conditional download concluded.
type FetchStatus string

const (
	StatusFresh       FetchStatus = "fresh"
	StatusNotModified FetchStatus = "not_modified"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) firelake/1.0"

// Fetcher wraps an HTTP client with retry/backoff and conditional-request
// support. Zero-value retries and delay are replaced by New's defaults.
type Fetcher struct {
	Client  *http.Client
	Retries int
	// Delay is the fixed pause between discovery-driven downloads, to keep
	// the load on the source sites polite.
	Delay time.Duration
}

func New(timeout, delay time.Duration, retries int) *Fetcher {
	if retries <= 0 {
		retries = 3
	}
	return &Fetcher{
		Client:  &http.Client{Timeout: timeout},
		Retries: retries,
		Delay:   delay,
	}
}

// get issues a GET with retry on network errors and 5xx responses, backing
// off one second per attempt. The caller owns the response body.
func (f *Fetcher) get(url string, since *time.Time) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= f.Retries; attempt++ {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
		}
		req.Header.Set("User-Agent", defaultUserAgent)
		if since != nil {
			req.Header.Set("If-Modified-Since", since.UTC().Format(http.TimeFormat))
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error %d from %s", resp.StatusCode, url)
		} else {
			return resp, nil
		}

		if attempt < f.Retries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return nil, fmt.Errorf("giving up on %s after %d attempts: %w", url, f.Retries, lastErr)
}

// DownloadIfModified fetches url into localPath unless the server reports the
// cached copy is still current. The cache file's modification time is the
// not-modified-since precondition; on a 304 the cached bytes are left
// untouched.
func (f *Fetcher) DownloadIfModified(url, localPath string) (FetchStatus, error) {
	var since *time.Time
	if info, err := os.Stat(localPath); err == nil {
		mtime := info.ModTime()
		since = &mtime
	}

	resp, err := f.get(url, since)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		log.Printf("Scraper: %s not modified, reusing cached copy at %s\n", url, localPath)
		return StatusNotModified, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: received status code %d", url, resp.StatusCode)
	}

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	outFile, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		return "", fmt.Errorf("failed to copy downloaded content to %s: %w", localPath, err)
	}

	log.Printf("Scraper: Downloaded %s to %s\n", url, localPath)
	return StatusFresh, nil
}

// Throttle sleeps for the configured inter-request delay.
func (f *Fetcher) Throttle() {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
}
