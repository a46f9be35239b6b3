package extract

import (
	"bytes"
	"strings"

	"github.com/poiesic/lorekeep/core"
)

// oleSignature starts every compound-file (legacy Word) document.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// minRunLength is the shortest character run accepted as document text when
// scanning a legacy binary document.
const minRunLength = 20

// Stream and property names that show up as readable runs in every
// compound file and are never document text.
var oleNoise = []string{
	"Root Entry",
	"WordDocument",
	"SummaryInformation",
	"DocumentSummaryInformation",
	"CompObj",
	"Microsoft Word",
	"Normal.dot",
	"MSWordDoc",
	"Word.Document",
}

// decodeMSWord extracts text from an application/msword upload. Files that
// are really Office Open XML archives take the DOCX path; genuine binary
// documents get a best-effort recovery of their text runs.
func decodeMSWord(f File) (string, error) {
	switch {
	case bytes.HasPrefix(f.Content, zipSignature):
		return decodeDOCX(f)
	case bytes.HasPrefix(f.Content, oleSignature):
		text := legacyText(f.Content[len(oleSignature):])
		if strings.TrimSpace(text) == "" {
			return "", core.NewIngestError(core.KindExtractionError, f.Name, "no text found in legacy Word document", nil)
		}
		return text, nil
	default:
		return "", core.NewIngestError(core.KindExtractionError, f.Name, "not a Word document", nil)
	}
}

// legacyText recovers paragraphs from a binary Word document. Word stores its
// text either as UTF-16LE or as 8-bit characters with \r paragraph marks; both
// encodings are scanned and the one yielding more text wins.
func legacyText(b []byte) string {
	wide := scanRuns(b, 2)
	narrow := scanRuns(b, 1)
	runs := wide
	if runeTotal(narrow) > runeTotal(wide) {
		runs = narrow
	}

	var paragraphs []string
	for _, run := range runs {
		for _, p := range strings.Split(run, "\r") {
			p = strings.TrimSpace(p)
			if p != "" {
				paragraphs = append(paragraphs, p)
			}
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// scanRuns collects runs of text characters. width is 2 for UTF-16LE code
// units and 1 for single bytes.
func scanRuns(b []byte, width int) []string {
	var (
		runs    []string
		current []rune
	)
	flush := func() {
		if len(current) >= minRunLength {
			run := string(current)
			if strings.ContainsRune(run, ' ') && !isNoise(run) {
				runs = append(runs, run)
			}
		}
		current = current[:0]
	}

	for i := 0; i+width <= len(b); i += width {
		var r rune
		if width == 2 {
			r = rune(b[i]) | rune(b[i+1])<<8
		} else {
			r = rune(b[i])
		}
		if isTextRune(r, width) {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()
	return runs
}

func isTextRune(r rune, width int) bool {
	switch {
	case r == '\r' || r == '\n' || r == '\t':
		return true
	case r >= 0x20 && r < 0x7F:
		return true
	case width == 2 && r >= 0xA0 && r <= 0xFF:
		return true
	case width == 2 && (r == 0x2013 || r == 0x2014 || r == 0x2026 || (r >= 0x2018 && r <= 0x201D)):
		return true
	}
	return false
}

func isNoise(run string) bool {
	trimmed := strings.TrimSpace(run)
	for _, n := range oleNoise {
		if strings.HasPrefix(trimmed, n) {
			return true
		}
	}
	return false
}

func runeTotal(runs []string) int {
	total := 0
	for _, r := range runs {
		total += len(r)
	}
	return total
}
