package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Downloader fetches dataset files over HTTP, retrying transient failures
// with exponential backoff.
type Downloader struct {
	Client *http.Client
	// MaxElapsed bounds the total time spent retrying one file.
	MaxElapsed time.Duration
	Log        *logrus.Entry
}

// Fetch downloads url into dest and returns the number of bytes written.
// The file is written beside dest and renamed into place, so dest is never
// left half written. Client errors (4xx) are not retried.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) (int64, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	log := d.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	tmp := dest + ".part"
	defer os.Remove(tmp)

	bo := backoff.NewExponentialBackOff()
	if d.MaxElapsed > 0 {
		bo.MaxElapsedTime = d.MaxElapsed
	}

	var (
		written int64
		attempt int
	)
	op := func() error {
		attempt++
		n, err := fetchOnce(ctx, client, url, tmp)
		if err != nil {
			log.WithFields(logrus.Fields{"url": url, "attempt": attempt}).WithError(err).Warn("download failed")
			return err
		}
		written = n
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return 0, err
	}
	log.WithFields(logrus.Fields{"url": url, "dest": dest, "bytes": written}).Info("downloaded")
	return written, nil
}

func fetchOnce(ctx context.Context, client *http.Client, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return 0, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	defer f.Close()

	return io.Copy(f, resp.Body)
}
