// Package normalisers holds the document extractors that turn uploaded files
// into page text. PDF is the only ingest format.
package normalisers
