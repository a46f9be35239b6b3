package ingestion

import (
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/extract"
)

// Input is one raw ingestion request. The set of implementations is closed:
// URLInput, FilesInput and TextInput.
type Input interface {
	// Kind returns the source kind this input produces.
	Kind() core.SourceKind

	sealed()
}

// URLInput ingests the main content of a web page.
type URLInput struct {
	URL         string
	Description string
}

// FilesInput ingests a batch of uploaded documents as one source.
type FilesInput struct {
	Files       []extract.File
	Description string
}

// TextInput ingests pasted text. Name is optional.
type TextInput struct {
	Text        string
	Name        string
	Description string
}

func (URLInput) Kind() core.SourceKind   { return core.SourceKindURL }
func (FilesInput) Kind() core.SourceKind { return core.SourceKindFile }
func (TextInput) Kind() core.SourceKind  { return core.SourceKindText }

func (URLInput) sealed()   {}
func (FilesInput) sealed() {}
func (TextInput) sealed()  {}
