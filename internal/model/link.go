package model

import "time"

// Link представляет запись сокращённой ссылки.
type Link struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"original_url"`
	Alias       string     `json:"alias"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // nil — ссылка бессрочная
	Active      bool       `json:"active"`
	Owner       string     `json:"owner"`
}

// Expired сообщает, истёк ли срок действия ссылки на момент now.
// Граница строгая: ссылка с ExpiresAt == now ещё действительна.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// Resolvable сообщает, может ли ссылка участвовать в редиректе.
func (l *Link) Resolvable(now time.Time) bool {
	return l.Active && !l.Expired(now)
}
