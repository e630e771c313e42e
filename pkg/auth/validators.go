package auth

// LoginPayload represents the login request body.
type LoginPayload struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"required"`
	Remember bool   `json:"remember" form:"remember"`
}

// MeResponse represents the current user response.
type MeResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	RoleID   int    `json:"role_id"`
	RoleName string `json:"role_name"`
}
