package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/poiesic/lorekeep/core"
)

const (
	docxBodyPart = "word/document.xml"

	// maxDocumentXML caps the decompressed size of the document body.
	maxDocumentXML = 64 << 20
)

var zipSignature = []byte("PK\x03\x04")

// decodeDOCX extracts paragraph text from an Office Open XML document.
func decodeDOCX(f File) (string, error) {
	text, err := docxText(f.Content)
	if err != nil {
		return "", core.NewIngestError(core.KindExtractionError, f.Name, "could not read Word document", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", core.NewIngestError(core.KindExtractionError, f.Name, "Word document contains no text", nil)
	}
	return text, nil
}

// docxText returns the text runs of word/document.xml. Paragraphs are
// separated by a blank line, tabs and breaks are kept.
func docxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var body *zip.File
	for _, zf := range zr.File {
		if zf.Name == docxBodyPart {
			body = zf
			break
		}
	}
	if body == nil {
		return "", errors.New("missing " + docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxDocumentXML))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	flush := func() {
		p := strings.TrimSpace(current.String())
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
		current.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	flush()

	return strings.Join(paragraphs, "\n\n"), nil
}
