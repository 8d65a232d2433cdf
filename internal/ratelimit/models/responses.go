package models

// RateLimitExceededResponse is the API response when a client exhausts its window.
type RateLimitExceededResponse struct {
	Error      string `json:"error"` // "rate_limit_exceeded"
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"` // seconds
}

// WindowResponse describes one client's current window for operators.
type WindowResponse struct {
	Key     string           `json:"key"`
	Tracked bool             `json:"tracked"`
	Window  *RateLimitResult `json:"window,omitempty"`
}

type SweepResponse struct {
	Removed int `json:"removed"`
}
