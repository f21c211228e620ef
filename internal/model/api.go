package model

// CreateLinkRequest представляет структуру запроса на создание ссылки.
type CreateLinkRequest struct {
	URL       string `json:"url"`
	Alias     string `json:"alias,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"` // RFC 3339
}
