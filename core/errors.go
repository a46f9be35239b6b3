// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain validation errors
var (
	// ErrInvalidKnowledgeSource indicates a KnowledgeSource failed validation.
	ErrInvalidKnowledgeSource = errors.New("invalid knowledge source")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidSourceKind indicates an invalid SourceKind value.
	ErrInvalidSourceKind = errors.New("invalid source kind")

	// ErrInvalidSourceStatus indicates an invalid SourceStatus value.
	ErrInvalidSourceStatus = errors.New("invalid source status")

	// ErrMissingAgent indicates the AgentID field is the nil UUID.
	ErrMissingAgent = errors.New("agent id cannot be empty")

	// ErrWordCountMismatch indicates WordCount was not derived from Content.
	ErrWordCountMismatch = errors.New("word count does not match content")
)

// ErrorKind classifies ingestion failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMissingCredential
	KindUpstreamError
	KindTimeout
	KindEmptyContent
	KindUnsupportedFormat
	KindTooLarge
	KindInvalidEncoding
	KindExtractionError
	KindInvalidURL
)

// Ingestion failure sentinels. Every *IngestError matches exactly one of these
// through errors.Is.
var (
	ErrMissingCredential = errors.New("crawl credential not configured")
	ErrUpstream          = errors.New("upstream error")
	ErrTimeout           = errors.New("timed out")
	ErrEmptyContent      = errors.New("no usable content")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTooLarge          = errors.New("file too large")
	ErrInvalidEncoding   = errors.New("invalid text encoding")
	ErrExtraction        = errors.New("text extraction failed")
	ErrInvalidURL        = errors.New("invalid url")
)

var kindSentinels = map[ErrorKind]error{
	KindMissingCredential: ErrMissingCredential,
	KindUpstreamError:     ErrUpstream,
	KindTimeout:           ErrTimeout,
	KindEmptyContent:      ErrEmptyContent,
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindTooLarge:          ErrTooLarge,
	KindInvalidEncoding:   ErrInvalidEncoding,
	KindExtractionError:   ErrExtraction,
	KindInvalidURL:        ErrInvalidURL,
}

func (k ErrorKind) String() string {
	switch k {
	case KindMissingCredential:
		return "MissingCredential"
	case KindUpstreamError:
		return "UpstreamError"
	case KindTimeout:
		return "Timeout"
	case KindEmptyContent:
		return "EmptyContent"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindTooLarge:
		return "TooLarge"
	case KindInvalidEncoding:
		return "InvalidEncoding"
	case KindExtractionError:
		return "ExtractionError"
	case KindInvalidURL:
		return "InvalidURL"
	default:
		return "Unknown"
	}
}

// IngestError is a typed ingestion failure for a single source.
type IngestError struct {
	Kind    ErrorKind
	Source  string // File name or URL the failure belongs to
	Status  int    // HTTP status for KindUpstreamError
	Message string // Human-readable detail
	Err     error  // Underlying cause, if any
}

// NewIngestError builds an IngestError of the given kind.
func NewIngestError(kind ErrorKind, source, message string, cause error) *IngestError {
	return &IngestError{Kind: kind, Source: source, Message: message, Err: cause}
}

func (e *IngestError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString(": ")
	}
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		b.WriteString(sentinel.Error())
	} else {
		b.WriteString("ingestion failed")
	}
	if e.Kind == KindUpstreamError && e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports whether target is the sentinel for this error's kind.
func (e *IngestError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindUnknown
}
