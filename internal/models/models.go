package models

import "time"

// PlaceholderImage is a 1x1 transparent PNG served whenever a request is
// rejected before an image could be produced, so the caller always has
// something to render.
const PlaceholderImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// GenerationRequest is one user submission. NormalizedPrompt (trimmed,
// lowercased) is the cache and dedup key; Prompt keeps the original text for
// display and the outbound payload.
type GenerationRequest struct {
	Prompt           string    `json:"prompt"`
	NormalizedPrompt string    `json:"-"`
	RequestID        string    `json:"request_id,omitempty"`
	SubmittedAt      time.Time `json:"-"`
}

// GenerationResult is the uniform shape every code path terminates in,
// success or failure. Immutable once constructed.
type GenerationResult struct {
	Success          bool   `json:"success"`
	ImageURL         string `json:"imageUrl"`
	Message          string `json:"message,omitempty"`
	Prompt           string `json:"prompt,omitempty"`
	RemainingCredits int    `json:"remainingCredits,omitempty"`
}

// Failure builds a rejected result carrying the placeholder image.
func Failure(prompt, message string) GenerationResult {
	return GenerationResult{
		Success:  false,
		ImageURL: PlaceholderImage,
		Message:  message,
		Prompt:   prompt,
	}
}

// GenerationLog is one audit row for an accepted generation attempt.
type GenerationLog struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	RequestID string    `json:"requestId"`
	Prompt    string    `json:"prompt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Generation log statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)
