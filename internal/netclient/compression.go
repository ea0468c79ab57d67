// File: internal/netclient/compression.go
package netclient

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// DecompressionMiddleware is an http.RoundTripper that negotiates compression
// with the server and transparently decompresses response bodies. It supports
// gzip, deflate (zlib-wrapped or raw), and brotli.
type DecompressionMiddleware struct {
	// Transport is the underlying round tripper. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// NewDecompressionMiddleware wraps the provided transport.
func NewDecompressionMiddleware(transport http.RoundTripper) *DecompressionMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &DecompressionMiddleware{Transport: transport}
}

// RoundTrip implements http.RoundTripper.
func (m *DecompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "br, gzip, deflate, identity")
	}

	resp, err := m.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := decompressResponse(resp); err != nil {
		// The body stream may be partially consumed; discard the response.
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}
	return resp, nil
}

// decompressResponse wraps resp.Body with decoders for each Content-Encoding
// layer, applied in reverse order. After wrapping it clears the encoding and
// length headers and marks the response uncompressed.
func decompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}

	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}

	for i := len(encodings) - 1; i >= 0; i-- {
		encoding := strings.ToLower(strings.TrimSpace(encodings[i]))

		var reader io.ReadCloser
		switch encoding {
		case "gzip":
			zr, err := gzip.NewReader(resp.Body)
			if err != nil {
				return fmt.Errorf("gzip initialization error: %w", err)
			}
			reader = zr
		case "deflate":
			dr, err := newDeflateReader(resp.Body)
			if err != nil {
				return fmt.Errorf("deflate initialization error: %w", err)
			}
			reader = dr
		case "br":
			reader = io.NopCloser(brotli.NewReader(resp.Body))
		case "identity", "":
			continue
		default:
			return fmt.Errorf("unsupported Content-Encoding layer: %s", encoding)
		}

		resp.Body = &closeWrapper{ReadCloser: reader, originalBody: resp.Body}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// closeWrapper closes both the decoder and the underlying body so the
// transport can reclaim the connection.
type closeWrapper struct {
	io.ReadCloser
	originalBody io.ReadCloser
}

func (w *closeWrapper) Close() error {
	return errors.Join(w.ReadCloser.Close(), w.originalBody.Close())
}

// newDeflateReader attempts zlib-wrapped deflate (RFC 1950) first, falling
// back to raw deflate (RFC 1951) for servers that send it bare.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	buffered := newReplayReader(r)

	zr, err := zlib.NewReader(buffered)
	if err == nil {
		return zr, nil
	}

	buffered.Rewind()
	return flate.NewReader(buffered), nil
}

// replayReader buffers what has been read so a failed decoder probe can be
// retried from the start of the stream.
type replayReader struct {
	r      io.Reader
	buf    []byte
	source io.Reader
}

func newReplayReader(r io.Reader) *replayReader {
	rr := &replayReader{source: r}
	rr.r = io.TeeReader(r, &appendWriter{rr})
	return rr
}

func (rr *replayReader) Read(p []byte) (int, error) { return rr.r.Read(p) }

// Rewind makes previously read bytes available again.
func (rr *replayReader) Rewind() {
	rr.r = io.MultiReader(strings.NewReader(string(rr.buf)), rr.source)
}

type appendWriter struct{ rr *replayReader }

func (w *appendWriter) Write(p []byte) (int, error) {
	w.rr.buf = append(w.rr.buf, p...)
	return len(p), nil
}
