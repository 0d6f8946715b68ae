package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Fetch downloads the object at url into a transient local file and
// returns its path with a cleanup func removing it. Cleanup is safe to
// call on every exit path; on any error the partial file is already gone.
func Fetch(ctx context.Context, client *http.Client, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("blob fetch returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "vidobj-*.mp4")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	path := tmp.Name()
	cleanup := func() { os.Remove(path) }
	return path, cleanup, nil
}
