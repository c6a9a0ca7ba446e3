// Package refdata loads the drug dictionary and the interaction knowledge
// base from local files or HTTP URLs, in JSON or YAML.
package refdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"golang.org/x/text/encoding/charmap"
)

const maxSourceSize = 32 * 1024 * 1024

var httpClient = &http.Client{Timeout: 2 * time.Minute}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// readSource returns the UTF-8 content at location. Content that is not
// valid UTF-8 is decoded as ISO-8859-1.
func readSource(ctx context.Context, location string) ([]byte, error) {
	var raw []byte
	var err error
	if isRemote(location) {
		raw, err = download(ctx, location)
	} else {
		raw, err = os.ReadFile(filepath.Clean(location))
	}
	if err != nil {
		return nil, err
	}

	if utf8.Valid(raw) {
		return raw, nil
	}
	logging.Debug("Reference file is not UTF-8, decoding as ISO-8859-1", "location", location)
	decoded, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return decoded, nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
