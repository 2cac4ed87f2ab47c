package domain

import "time"

// TokenPair is what a successful login returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // always "bearer"
	ExpiresIn    time.Duration
	User         User
}

// ResourceAccess grants access to a single resource, either by presenting
// Token or by following the signed URL.
type ResourceAccess struct {
	ResourceType string
	ResourceID   string
	Token        string
	SignedURL    string
	ExpiresAt    time.Time
}
