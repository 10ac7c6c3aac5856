package dto

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /auth/register. Username length is
// checked again after trimming.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=120"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public view of an account; the password hash never leaves the server.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthResponse answers a successful login or registration. The session
// itself travels in the session_id cookie.
type AuthResponse struct {
	OK   bool         `json:"ok"`
	User UserResponse `json:"user"`
}
