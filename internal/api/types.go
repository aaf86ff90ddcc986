package api

// SaveRequest is the body of POST /api/v1/texts.
type SaveRequest struct {
	Content string `json:"content"`
}

// SaveResponse is the payload returned for a successful save.
type SaveResponse struct {
	ID        string `json:"id"`
	ExpiresAt string `json:"expires_at"` // RFC3339
}

// TextResponse is the payload for GET /api/v1/texts/{id}.
type TextResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// CountResponse is the payload for GET /api/v1/count.
type CountResponse struct {
	Count int `json:"count"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status          string `json:"status"`
	Texts           int    `json:"texts"`
	ExpirationHours int    `json:"expiration_hours"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
