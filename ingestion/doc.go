// Package ingestion turns raw inputs into knowledge sources.
//
// The Pipeline accepts one of three inputs:
//   - URLInput, fetched through a PageFetcher
//   - FilesInput, extracted concurrently by the Aggregator
//   - TextInput, normalized directly
//
// and assembles a core.KnowledgeSource from the normalized text. File batches
// tolerate partial failure: the source is built from the files that worked
// and the rest are reported in Result.Skipped. A batch in which nothing
// worked fails with a *BatchError.
//
// The pipeline performs no writes. Persisting and processing the returned
// source is the caller's job.
package ingestion
