// Package models defines the domain types for the cookbook.
package models

import (
	"time"

	"github.com/starford/cookbook/internal/frontmatter"
)

// Recipe is a fully parsed recipe document.
type Recipe struct {
	Filename    string               `json:"filename"`
	Frontmatter frontmatter.Metadata `json:"frontmatter"`
	Content     string               `json:"content"`
	Checksum    string               `json:"checksum"`
	Size        int64                `json:"size"`
	Modified    time.Time            `json:"modified"`
}

// RecipeSummary is the lightweight projection returned by listings.
// Error is set when the underlying file could not be read or decoded.
type RecipeSummary struct {
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Date        string    `json:"date,omitempty"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description"`
	Draft       bool      `json:"draft"`
	Modified    time.Time `json:"modified"`
	Error       string    `json:"error,omitempty"`
}

// FileInfo describes a file under the clone root.
type FileInfo struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
