package rag

import "gilda/internal/llm"

// ContextSource tells where the text handed to the model came from.
type ContextSource string

const (
	// SourceVector is context assembled from similarity search matches.
	SourceVector ContextSource = "vector"
	// SourceFallback is stored full document text, used when search failed or found nothing.
	SourceFallback ContextSource = "fallback"
	// SourceNone means the owner has nothing to search.
	SourceNone ContextSource = "none"
)

// AssembledContext is the grounding text for one question plus its attribution.
type AssembledContext struct {
	Text      string
	Matches   []Match
	Source    ContextSource
	Truncated bool
}

// Match is a retrieved chunk used for attribution.
type Match struct {
	ChunkID    string  `json:"chunkId"`
	DocumentID string  `json:"documentId"`
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
}

// DeepLink is an entity mention in an answer that can be expanded with Lookup.
type DeepLink struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

// AskRequest represents one chat question.
type AskRequest struct {
	// OwnerID scopes retrieval to one owner's documents.
	OwnerID string
	// Message is the user's new message.
	Message string
	// History is the prior conversation, oldest first.
	History []llm.Message
	// FallbackText replaces the owner's stored documents when search yields nothing,
	// e.g. the content snapshot of a share link.
	FallbackText string
}

// AskResponse represents the answer to a chat question.
type AskResponse struct {
	// Answer is the generated assistant message.
	Answer string
	// Sources are the matched chunks the answer was grounded on, best first.
	Sources []Match
	// DeepLinks are the lookup markers found in the answer.
	DeepLinks []DeepLink
	// ContextSource records which context path was used.
	ContextSource ContextSource
}

// LookupRequest asks for details about one deep-linked entity.
type LookupRequest struct {
	OwnerID      string
	Query        string
	FallbackText string
}

// LookupResponse carries the detail answer for a deep link.
type LookupResponse struct {
	Details       string
	Sources       []Match
	ContextSource ContextSource
}
