package extract

import (
	"bytes"
	"unicode/utf8"

	"github.com/poiesic/lorekeep/core"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// decodeText decodes a plain-text upload. UTF-8 (with or without BOM) and
// BOM-marked UTF-16 are accepted; the result is NFC-normalized.
func decodeText(f File) (string, error) {
	b := f.Content

	if bytes.HasPrefix(b, utf16LEBOM) || bytes.HasPrefix(b, utf16BEBOM) {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
		if err != nil {
			return "", core.NewIngestError(core.KindInvalidEncoding, f.Name, "could not decode UTF-16 text", err)
		}
		b = decoded
	} else {
		b = bytes.TrimPrefix(b, utf8BOM)
	}

	if !utf8.Valid(b) {
		return "", core.NewIngestError(core.KindInvalidEncoding, f.Name, "content is not valid UTF-8", nil)
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return "", core.NewIngestError(core.KindInvalidEncoding, f.Name, "content contains NUL bytes", nil)
	}

	return norm.NFC.String(string(b)), nil
}
