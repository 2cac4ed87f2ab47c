package authsdk

import "time"

// ErrorResponse is the error envelope every endpoint uses.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Details          map[string]string `json:"details,omitempty"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// ============================================================================
// Requests
// ============================================================================

type RegisterRequest struct {
	Fullname string `json:"fullname" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,max=254"`
	NewPassword string `json:"new_password" validate:"required,max=1024"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required,max=1024"`
	NewPassword string `json:"new_password" validate:"required,max=1024"`
}

type ChangeFullnameRequest struct {
	Fullname string `json:"fullname" validate:"required,max=100"`
}

// ResourceAccessRequest asks for a grant on one resource. ExpiresIn is in
// seconds; zero uses the server default.
type ResourceAccessRequest struct {
	ResourceType string `json:"resource_type" validate:"required,alphanum,max=32"`
	ResourceID   string `json:"resource_id" validate:"required,max=128"`
	ExpiresIn    int    `json:"expires_in,omitempty" validate:"gte=0,lte=86400"`
}

// ============================================================================
// Responses
// ============================================================================

// TokenResponse is returned by login and refresh. Refresh responses carry
// no refresh token.
type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	User         *UserResponse `json:"user,omitempty"`
}

type UserResponse struct {
	ID          string     `json:"id"`
	Fullname    string     `json:"fullname"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResourceAccessResponse carries the two equivalent forms of a resource
// grant. SignedURL is path-relative.
type ResourceAccessResponse struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	AccessToken  string `json:"access_token"`
	SignedURL    string `json:"signed_url"`
	ExpiresAt    int64  `json:"expires_at"`
}

// ResourceResponse describes a resource fetched through a grant.
type ResourceResponse struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	UserID       string `json:"user_id,omitempty"`
	GrantedBy    string `json:"granted_by"` // "signed_url" or "token"
}
