package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

// TransferClient writes object bytes directly to a signed upload URL, the
// same way a guest's browser would.
type TransferClient struct {
	httpClient *http.Client
}

func NewTransferClient(httpClient *http.Client) *TransferClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TransferClient{httpClient: httpClient}
}

// Put uploads size bytes from reader to url. The content type must match the
// one the URL was signed for.
func (t *TransferClient) Put(ctx context.Context, url, contentType string, reader io.Reader, size int64, quiet bool) error {
	var body io.Reader = reader
	if !quiet {
		bar := progressbar.DefaultBytes(size, "uploading")
		pbReader := progressbar.NewReader(reader, bar)
		body = &pbReader
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Debugf("Upload rejected with %d: %s", resp.StatusCode, detail)
		return fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}
	return nil
}
