package dto

import "time"

// LoginRequest carries the demo credentials.
type LoginRequest struct {
	ZID      string `json:"z_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the session token for the authenticated student.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Student   StudentListItem `json:"student"`
}

// StudentListItem is the entry shown on the login picker.
type StudentListItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	ZID  string `json:"z_id"`
}
