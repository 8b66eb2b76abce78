package auth

import "github.com/leadgate/leadgate/internal/policy"

// User is the authenticated actor as consumed by the rest of the system.
// It is an immutable snapshot owned by the session; the policy engine trusts
// ID and Role and nothing else.
type User struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     policy.Role `json:"role"`
}
