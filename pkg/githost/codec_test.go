package githost_test

import (
	"encoding/base64"
	"testing"

	"github.com/draftforge/draftforge/pkg/githost"
	"github.com/draftforge/draftforge/pkg/testutil"
)

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"ascii", `{"title":"Hi"}`},
		{"multibyte", "héllo 🚀世界"},
		{"mixed", "page: \"über\" — כותרת — 日本語\nsecond line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := githost.EncodeContent(tt.text)
			decoded, err := githost.DecodeContent(encoded)
			testutil.MustDo(t, "decode", err)
			if decoded != tt.text {
				t.Errorf("round-trip got %q, expected %q", decoded, tt.text)
			}
		})
	}
}

func TestDecodeContent_WrappedLines(t *testing.T) {
	// the contents API wraps base64 payloads at 60 columns
	text := "content long enough to be wrapped across several base64 lines by the remote store"
	encoded := githost.EncodeContent(text)
	wrapped := ""
	for i := 0; i < len(encoded); i += 60 {
		end := min(i+60, len(encoded))
		wrapped += encoded[i:end] + "\n"
	}

	decoded, err := githost.DecodeContent(wrapped)
	testutil.MustDo(t, "decode wrapped", err)
	if decoded != text {
		t.Errorf("got %q, expected %q", decoded, text)
	}
}

func TestDecodeContent_Invalid(t *testing.T) {
	if _, err := githost.DecodeContent("!!! not base64 !!!"); err == nil {
		t.Error("expected error decoding invalid transport content")
	}
}

func TestEncodeContent_IsStdBase64(t *testing.T) {
	const text = "héllo 🚀世界"
	raw, err := base64.StdEncoding.DecodeString(githost.EncodeContent(text))
	testutil.MustDo(t, "decode with std base64", err)
	if string(raw) != text {
		t.Errorf("encoded form does not hold the UTF-8 bytes of %q", text)
	}
}
