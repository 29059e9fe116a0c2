package llm

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const dataURIPrefix = "data:"

// EncodeImage wraps raw image bytes as a base64 data URI.
func EncodeImage(b []byte) string {
	return dataURIPrefix + imageMIME(b) + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// normalizeImage accepts an image as a data URI, a bare base64 payload, or
// raw bytes, and returns a data URI.
func normalizeImage(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("image is empty")
	}
	if strings.HasPrefix(s, dataURIPrefix) {
		if !strings.Contains(s, ";base64,") {
			return "", fmt.Errorf("image data URI is not base64 encoded")
		}
		return s, nil
	}
	compact := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if b, err := base64.StdEncoding.DecodeString(compact); err == nil && len(b) > 0 {
		return dataURIPrefix + imageMIME(b) + ";base64," + compact, nil
	}
	return EncodeImage([]byte(s)), nil
}

func normalizeImages(images []string) ([]string, error) {
	out := make([]string, 0, len(images))
	for i, img := range images {
		uri, err := normalizeImage(img)
		if err != nil {
			return nil, errInvalidInput(fmt.Sprintf("image %d: %v", i+1, err))
		}
		out = append(out, uri)
	}
	return out, nil
}

// imageMIME sniffs the content type; anything that is not an image is
// labeled JPEG, the format screenshots are compressed to.
func imageMIME(b []byte) string {
	ct := http.DetectContentType(b)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}
