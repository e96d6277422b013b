package storage

import "time"

// Document is an uploaded file and its extracted text.
type Document struct {
	ID         string // UUID
	OwnerID    string
	Filename   string
	Text       string // Extracted text; empty in metadata listings
	SizeBytes  int64
	Active     bool // False once superseded by a newer upload with the same filename
	ChunkCount int
	CreatedAt  time.Time
}

// ChatTurn is one audited chat message.
type ChatTurn struct {
	ID         string // UUID
	OwnerID    string
	DocumentID string // Optional
	ShareID    string // Set when the turn came through a share link
	Role       string // "user" or "assistant"
	Content    string
	CreatedAt  time.Time
}
