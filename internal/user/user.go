package user

import "github.com/skybi/reservation-console/internal/machine"

// User represents an account registered at the backend
type User struct {
	Username  string             `json:"username" required:"true"`
	IsAdmin   bool               `json:"is_admin"`
	CreatedAt *machine.Timestamp `json:"created_at"`
}

// Create is used to create a new user
type Create struct {
	Username string `json:"username" required:"true"`
	Password string `json:"password" required:"true"`
	IsAdmin  bool   `json:"is_admin"`
}
