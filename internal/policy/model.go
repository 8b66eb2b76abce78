package policy

import "fmt"

// ModelConfig declares the full access model up front. It is constructed once
// at startup and never mutated afterwards.
type ModelConfig struct {
	// Capabilities per role.
	Capabilities map[Role]Capabilities
	// HiddenColumns per role; columns suppressed from wildcard expansion.
	HiddenColumns map[Role][]string
	// LeadColumns is the ordered, complete column list of the leads table.
	LeadColumns []string
}

// DefaultConfig returns the access model shipped with the application.
func DefaultConfig() ModelConfig {
	return ModelConfig{
		Capabilities: map[Role]Capabilities{
			RoleAdmin:    {CanViewAll: true, CanExport: true},
			RoleManager:  {CanViewAll: true, CanExport: true},
			RoleSalesRep: {},
			RoleViewer:   {},
		},
		HiddenColumns: map[Role][]string{
			RoleAdmin:    {},
			RoleManager:  {"internal_notes", "admin_notes"},
			RoleSalesRep: {"value", "internal_notes", "admin_notes"},
			RoleViewer:   {"value", "internal_notes", "admin_notes"},
		},
		LeadColumns: []string{
			"id", "name", "email", "phone", "company", "title",
			"status", "source", "value", "notes", "internal_notes", "admin_notes",
			"created_at", "updated_at", "last_contacted_at",
		},
	}
}

// Model answers capability, column-visibility and row-visibility questions.
// It is immutable and safe for concurrent use.
type Model struct {
	caps        map[Role]Capabilities
	hidden      map[Role]map[string]struct{}
	leadColumns []string
	// restrictedHidden is the union of every configured hidden set; it is the
	// fallback for unrecognised roles so the failure direction is always
	// towards less visibility.
	restrictedHidden map[string]struct{}
}

// NewModel validates the configuration and builds the lookup model.
// Validation failure is a configuration error and must abort startup.
func NewModel(cfg ModelConfig) (*Model, error) {
	if len(cfg.LeadColumns) == 0 {
		return nil, fmt.Errorf("policy: lead column list must not be empty")
	}
	m := &Model{
		caps:             make(map[Role]Capabilities, len(cfg.Capabilities)),
		hidden:           make(map[Role]map[string]struct{}, len(cfg.HiddenColumns)),
		leadColumns:      append([]string(nil), cfg.LeadColumns...),
		restrictedHidden: make(map[string]struct{}),
	}
	for role, caps := range cfg.Capabilities {
		if !role.Valid() {
			return nil, fmt.Errorf("policy: capability entry for unknown role %q", role)
		}
		m.caps[role] = caps
	}
	known := make(map[string]struct{}, len(cfg.LeadColumns))
	for _, col := range cfg.LeadColumns {
		known[col] = struct{}{}
	}
	for role, cols := range cfg.HiddenColumns {
		if !role.Valid() {
			return nil, fmt.Errorf("policy: hidden-column entry for unknown role %q", role)
		}
		set := make(map[string]struct{}, len(cols))
		for _, col := range cols {
			if _, ok := known[col]; !ok {
				return nil, fmt.Errorf("policy: hidden column %q not in lead column list", col)
			}
			set[col] = struct{}{}
			m.restrictedHidden[col] = struct{}{}
		}
		m.hidden[role] = set
	}
	for _, role := range Roles() {
		if _, ok := m.caps[role]; !ok {
			return nil, fmt.Errorf("policy: no capabilities configured for role %q", role)
		}
		if _, ok := m.hidden[role]; !ok {
			return nil, fmt.Errorf("policy: no hidden columns configured for role %q", role)
		}
	}
	if len(m.hidden[RoleAdmin]) != 0 {
		return nil, fmt.Errorf("policy: admin must not hide any column")
	}
	if err := m.checkHiddenOrdering(); err != nil {
		return nil, err
	}
	return m, nil
}

// checkHiddenOrdering enforces that capability-bearing roles hide no more
// columns than restricted roles do.
func (m *Model) checkHiddenOrdering() error {
	for role, caps := range m.caps {
		if !caps.CanViewAll {
			continue
		}
		for col := range m.hidden[role] {
			for other, otherCaps := range m.caps {
				if otherCaps.CanViewAll {
					continue
				}
				if _, ok := m.hidden[other][col]; !ok {
					return fmt.Errorf("policy: %s hides %q but restricted role %s does not", role, col, other)
				}
			}
		}
	}
	return nil
}

// Capabilities returns the capability flags for a role. An unrecognised role
// carries no capabilities and returns an error; callers must not degrade the
// error into the permissive direction.
func (m *Model) Capabilities(role Role) (Capabilities, error) {
	caps, ok := m.caps[role]
	if !ok {
		return Capabilities{}, fmt.Errorf("policy: unknown role %q", role)
	}
	return caps, nil
}

// HiddenColumns returns the column names suppressed for a role. For an
// unrecognised role it returns the union of all hidden sets together with an
// error, never the empty (admin) set.
func (m *Model) HiddenColumns(role Role) (map[string]struct{}, error) {
	set, ok := m.hidden[role]
	if !ok {
		return copySet(m.restrictedHidden), fmt.Errorf("policy: unknown role %q", role)
	}
	return copySet(set), nil
}

// VisibleColumns returns the ordered lead columns a role may see.
func (m *Model) VisibleColumns(role Role) ([]string, error) {
	hidden, err := m.HiddenColumns(role)
	visible := make([]string, 0, len(m.leadColumns))
	for _, col := range m.leadColumns {
		if _, ok := hidden[col]; ok {
			continue
		}
		visible = append(visible, col)
	}
	return visible, err
}

// RowPredicate builds the row-visibility condition for a role and user id.
// Capability-bearing roles see every row; everyone else is limited to rows
// they own or are assigned to. The predicate is parameterized exclusively by
// the authenticated user id. An unrecognised role gets the restrictive
// predicate together with an error.
func (m *Model) RowPredicate(role Role, userID int64) (string, error) {
	caps, err := m.Capabilities(role)
	if err != nil {
		return restrictedPredicate(userID), err
	}
	if caps.CanViewAll {
		return "1=1", nil
	}
	return restrictedPredicate(userID), nil
}

func restrictedPredicate(userID int64) string {
	return fmt.Sprintf("(owner_id = %d OR id IN (SELECT lead_id FROM lead_assignments WHERE user_id = %d))", userID, userID)
}

// LeadColumns returns the full ordered column list of the leads table.
func (m *Model) LeadColumns() []string {
	return append([]string(nil), m.leadColumns...)
}

func copySet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
