// Package processing turns stored knowledge sources into embedded chunks.
//
// A Processor splits a source's content with a langchaingo text splitter,
// embeds the pieces with retry and exponential backoff, normalizes vectors to
// unit length and replaces the source's chunks in storage. A failed run marks
// the source failed and records the error on it.
//
// A Reprocessor runs the Processor over every stored source, reporting
// progress and saving a checkpoint so an interrupted run resumes where it
// stopped.
package processing
