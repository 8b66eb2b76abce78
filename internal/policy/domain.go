package policy

import "fmt"

// Role is the closed set of roles known to the access model.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleSalesRep Role = "sales_rep"
	RoleViewer   Role = "viewer"
)

// Roles lists every role the model recognises.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleSalesRep, RoleViewer}
}

// ParseRole maps a stored role name onto the closed enum.
func ParseRole(name string) (Role, error) {
	switch Role(name) {
	case RoleAdmin, RoleManager, RoleSalesRep, RoleViewer:
		return Role(name), nil
	}
	return "", fmt.Errorf("policy: unknown role %q", name)
}

// Valid reports whether the role is a member of the closed enum.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Capabilities are the derived permission flags for a role.
type Capabilities struct {
	CanViewAll bool
	CanExport  bool
}

// Subject identifies the authenticated actor a query is authorized for.
// The ID must come from the session, never from untrusted input.
type Subject struct {
	ID   int64
	Role Role
}
