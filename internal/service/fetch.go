package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// FileFetcher downloads a remote source file for jobs submitted with a URL
// instead of a multipart upload.
type FileFetcher struct {
	client   *resty.Client
	maxBytes int64
}

// NewFileFetcher creates a FileFetcher. maxBytes caps the accepted body
// size; zero means no cap.
func NewFileFetcher(timeout time.Duration, maxBytes int64) *FileFetcher {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &FileFetcher{client: client, maxBytes: maxBytes}
}

// Fetch retrieves the file at url.
func (f *FileFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source file: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch source file: status %d", resp.StatusCode())
	}
	body := resp.Body()
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("source file exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}
