package handler

const (
	errInternalServer     = "Internal server error"
	errInvalidCredentials = "Invalid credentials"
	errEmailTaken         = "Email already registered"
	errTokenInvalid       = "Link is invalid or expired"
	errNotFound           = "Not found"
	errUnauthorizedBody   = "Unauthorized"
)
