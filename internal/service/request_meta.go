package service

import "github.com/google/uuid"

// RequestMeta describes who made a request. UserID is nil for anonymous
// callers, who are identified by SessionKey instead.
type RequestMeta struct {
	UserID     *uuid.UUID
	SessionKey string
	IPAddress  string
	UserAgent  string
	Referrer   string
}

// WithUser returns a copy of m attributed to userID.
func (m RequestMeta) WithUser(userID uuid.UUID) RequestMeta {
	id := userID
	m.UserID = &id
	return m
}
