// Package models defines the records shared between storage, the index and
// the HTTP layer.
package models

import "time"

// SourceMetadata describes one catalog file in the catalog directory.
type SourceMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is one directed annotator→annotatant edge contributed by an
// annotation.
type Link struct {
	Annotation string `json:"annotation"`
	Type       string `json:"type"`
	Source     string `json:"source"`
	Target     string `json:"target"`
}
