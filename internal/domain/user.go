package domain

// Role type to distinguish between user roles carried in access tokens.
type Role string

const (
	RoleLearner Role = "user"
	RoleAdmin   Role = "admin"
)

// Identity is the authenticated caller resolved from an access token.
// Tokens are issued by the external identity provider; this service only verifies them.
type Identity struct {
	UserID string
	Role   Role
}
