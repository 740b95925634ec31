// Package shared provides common utilities for backend implementations.
package shared

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// DefaultImageType is assumed when an image payload cannot be identified.
const DefaultImageType = "image/png"

// SniffImageType identifies the MIME type of encoded image bytes.
// Unrecognized content is reported as DefaultImageType.
func SniffImageType(data []byte) string {
	if len(data) == 0 {
		return DefaultImageType
	}
	detected := http.DetectContentType(data)
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	if !strings.HasPrefix(detected, "image/") {
		return DefaultImageType
	}
	return detected
}

// DataURI embeds data in a data: URI of the given MIME type.
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = SniffImageType(data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeImage builds a runtime.Image from a base64 payload.
//
// Behavior:
//   - Accepts plain base64 or a complete data: URI
//   - An empty mimeType is taken from the data: URI or sniffed from the bytes
//   - Returns an error for undecodable payloads
func DecodeImage(payload, mimeType string, width, height int) (runtime.Image, error) {
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found {
			return runtime.Image{}, fmt.Errorf("malformed data URI")
		}
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(header, ";")
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return runtime.Image{}, fmt.Errorf("decode image: %w", err)
	}
	if mimeType == "" {
		mimeType = SniffImageType(data)
	}
	return runtime.Image{
		Data:     data,
		MIMEType: mimeType,
		Width:    width,
		Height:   height,
	}, nil
}
