package user

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest payload of sign up.
// swagger:model RegisterRequest
type RegisterRequest struct {
	Username string `json:"username" example:"ana"`
	Email    string `json:"email"    example:"ana@example.com"`
	Password string `json:"password" example:"s3cretpass"`
}
