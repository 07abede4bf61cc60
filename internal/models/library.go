package models

import "time"

// CustomLibraryItem is a user-saved resource (a link or an uploaded file)
// shown alongside the built-in library.
type CustomLibraryItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"` // "url" or "file"
	URL         string    `json:"url,omitempty"`
	FileData    string    `json:"fileData,omitempty"` // base64
	FileName    string    `json:"fileName,omitempty"`
	MimeType    string    `json:"mimeType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DiscoveredRule is a hidden social rule surfaced by a past analysis,
// de-duplicated across the history.
type DiscoveredRule struct {
	Rule   string `json:"rule"`
	Source string `json:"source"` // originalMessage of the analysis it came from
	Mode   Mode   `json:"mode"`
}
