package githost

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeContent encodes UTF-8 text into the base64 transport form the
// contents API expects. Encoding the raw bytes (not code points) is what
// keeps multibyte characters intact.
func EncodeContent(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// DecodeContent decodes base64 transport content back to UTF-8 text. The
// API wraps base64 payloads at 60 columns, so embedded newlines are
// stripped first.
func DecodeContent(transport string) (string, error) {
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(transport)
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("decode content: %w", err)
	}
	return string(raw), nil
}
