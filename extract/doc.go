// Package extract converts uploaded documents into text.
//
// Dispatch is by declared media type:
//   - text/plain and text/markdown are decoded as UTF-8 or BOM-marked UTF-16
//   - Word Open XML documents have their text runs read from word/document.xml
//   - legacy application/msword uploads are read as Open XML when they are
//     really zip archives, otherwise their text runs are recovered best-effort
//   - application/pdf is rejected: PDF extraction is not offered and callers
//     are told to paste the text instead
//
// Every failure is a *core.IngestError naming the file, so batch callers can
// report per-file reasons without string matching.
package extract
