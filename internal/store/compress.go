package store

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// maxUncompressed is the largest serialized payload stored raw. Anything
// longer is deflated and base64-encoded, with the compressed flag set.
const maxUncompressed = 6000

// maybeCompress prepares a serialized payload for storage.
func maybeCompress(s string) (stored string, compressed bool, err error) {
	if len(s) <= maxUncompressed {
		return s, false, nil
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return "", false, fmt.Errorf("compress: %w", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return "", false, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", false, fmt.Errorf("compress: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), true, nil
}

// expand reverses maybeCompress given the stored compressed flag.
func expand(stored string, compressed bool) (string, error) {
	if !compressed {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("decompress: %w", err)
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decompress: %w", err)
	}
	return string(data), nil
}
