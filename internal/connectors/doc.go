// Package connectors holds the sources documents arrive from besides direct
// uploads. The filesystem connector watches a directory of PDFs.
package connectors
