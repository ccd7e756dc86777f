// Package api holds the response envelopes and validation helpers
// shared by every handler package.
package api

type ErrorResponse struct {
	Error string `json:"error" example:"booking not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Email queued successfully"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
