package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
)

// defaultMaxScriptBytes caps a downloaded script when no size limit is set.
const defaultMaxScriptBytes = 16 << 20

// scriptClient performs script downloads. Tests can override it.
var scriptClient = &http.Client{}

// loadScript reads the PAC script at src, an http(s) URL or a file path.
func loadScript(ctx context.Context, src string, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxScriptBytes
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return fetchScript(ctx, src, maxBytes)
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening script: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readLimited(f, maxBytes)
}

func fetchScript(ctx context.Context, rawURL string, maxBytes int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetching script: %w", err)
	}
	req.Header.Set("Accept", "application/x-ns-proxy-autoconfig, */*")
	// An explicit Accept-Encoding disables the transport's transparent gzip.
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := scriptClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching script: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching script: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("fetching script: %w", err)
		}
		defer func() { _ = zr.Close() }()
		body = zr
	case "br":
		body = brotli.NewReader(resp.Body)
	default:
		return "", fmt.Errorf("fetching script: unsupported content encoding %q", enc)
	}
	return readLimited(body, maxBytes)
}

func readLimited(r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("reading script: exceeds %d bytes", maxBytes)
	}
	return string(data), nil
}
