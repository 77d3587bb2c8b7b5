// Package inputs manages the standard benchmark source files.
package inputs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/schollz/progressbar/v3"

	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/progress"
)

// Standard lists the source files the benchmark runs over, in run order.
var Standard = []string{
	"720-60.y4m",
	"720-120.y4m",
	"1080-60.y4m",
	"1080-120.y4m",
	"2k-60.y4m",
	"2k-120.y4m",
	"4k-60.y4m",
	"4k-120.y4m",
}

// Paths returns the standard files joined to dir.
func Paths(dir string) []string {
	paths := make([]string, len(Standard))
	for i, name := range Standard {
		paths[i] = filepath.Join(dir, name)
	}
	return paths
}

// Missing returns the standard files that are not regular files in dir.
func Missing(dir string) []string {
	var missing []string
	for _, name := range Standard {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.Mode().IsRegular() {
			missing = append(missing, name)
		}
	}
	return missing
}

// Fetcher downloads source files with retries.
type Fetcher struct {
	client *http.Client
	logger logging.Logger

	// Progress receives a byte bar per file when it is a terminal.
	Progress io.Writer
}

// NewFetcher creates a fetcher retrying each request a few times.
func NewFetcher(logger logging.Logger) *Fetcher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = logger

	return &Fetcher{
		client: retryClient.StandardClient(),
		logger: logger,
	}
}

// Fetch downloads names from baseURL into dir. Files already present are
// skipped. A file only appears under its final name once complete.
func (f *Fetcher) Fetch(ctx context.Context, baseURL, dir string, names []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	for _, name := range names {
		dst := filepath.Join(dir, name)
		if _, err := os.Stat(dst); err == nil {
			f.logger.Info("Source file already present", "file", name)
			continue
		}

		src, err := url.JoinPath(baseURL, name)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", baseURL, err)
		}

		f.logger.Info("Downloading source file", "file", name, "url", src)
		if err := f.download(ctx, src, dst); err != nil {
			return fmt.Errorf("failed to download %s: %w", name, err)
		}
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, src, dst string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	var w io.Writer = tmp
	if progress.IsInteractive(f.Progress) {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.Progress),
			progressbar.OptionSetDescription(filepath.Base(dst)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionFullWidth(),
		)
		defer bar.Finish()
		w = io.MultiWriter(tmp, bar)
	}

	if _, err = io.Copy(w, resp.Body); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return errors.Join(err, os.Remove(tmp.Name()))
	}
	return nil
}
