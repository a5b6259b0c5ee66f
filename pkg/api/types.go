package api

import "time"

// PageResponse wraps a page of results with the cursor for the next page.
// Next is empty on the last page.
type PageResponse struct {
	Data any    `json:"data"`
	Next string `json:"next,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	LastIndexedBlock uint64    `json:"last_indexed_block"`
	ChainTip         uint64    `json:"chain_tip"`
}
