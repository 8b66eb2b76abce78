package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	model, err := NewModel(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, model)

	caps, err := model.Capabilities(RoleAdmin)
	require.NoError(t, err)
	assert.True(t, caps.CanViewAll)
	assert.True(t, caps.CanExport)

	caps, err = model.Capabilities(RoleViewer)
	require.NoError(t, err)
	assert.False(t, caps.CanViewAll)
	assert.False(t, caps.CanExport)
}

func TestVisibleColumnsPerRole(t *testing.T) {
	model, err := NewModel(DefaultConfig())
	require.NoError(t, err)

	admin, err := model.VisibleColumns(RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.LeadColumns(), admin)

	manager, err := model.VisibleColumns(RoleManager)
	require.NoError(t, err)
	assert.NotContains(t, manager, "internal_notes")
	assert.NotContains(t, manager, "admin_notes")
	assert.Contains(t, manager, "value")

	rep, err := model.VisibleColumns(RoleSalesRep)
	require.NoError(t, err)
	assert.NotContains(t, rep, "value")
	assert.NotContains(t, rep, "internal_notes")
	assert.NotContains(t, rep, "admin_notes")

	// Ordering follows the lead column list, not the hidden set.
	assert.Equal(t, "id", rep[0])
	assert.Equal(t, "last_contacted_at", rep[len(rep)-1])
}

func TestUnknownRoleFailsRestrictive(t *testing.T) {
	model, err := NewModel(DefaultConfig())
	require.NoError(t, err)

	_, err = model.Capabilities(Role("superuser"))
	require.Error(t, err)

	hidden, err := model.HiddenColumns(Role("superuser"))
	require.Error(t, err)
	// The fallback is the union of every hidden set, never the admin set.
	assert.Contains(t, hidden, "value")
	assert.Contains(t, hidden, "internal_notes")
	assert.Contains(t, hidden, "admin_notes")

	predicate, err := model.RowPredicate(Role("superuser"), 7)
	require.Error(t, err)
	assert.Contains(t, predicate, "owner_id = 7")
	assert.NotEqual(t, "1=1", predicate)
}

func TestRowPredicate(t *testing.T) {
	model, err := NewModel(DefaultConfig())
	require.NoError(t, err)

	p, err := model.RowPredicate(RoleManager, 3)
	require.NoError(t, err)
	assert.Equal(t, "1=1", p)

	p, err = model.RowPredicate(RoleSalesRep, 42)
	require.NoError(t, err)
	assert.Equal(t, "(owner_id = 42 OR id IN (SELECT lead_id FROM lead_assignments WHERE user_id = 42))", p)
}

func TestNewModelRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HiddenColumns[RoleViewer] = append(cfg.HiddenColumns[RoleViewer], "secret_column")
	_, err := NewModel(cfg)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "secret_column"))

	cfg = DefaultConfig()
	cfg.HiddenColumns[RoleAdmin] = []string{"notes"}
	_, err = NewModel(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	delete(cfg.Capabilities, RoleViewer)
	_, err = NewModel(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.LeadColumns = nil
	_, err = NewModel(cfg)
	require.Error(t, err)
}

func TestNewModelRejectsCapabilityRoleHidingMore(t *testing.T) {
	cfg := DefaultConfig()
	// A manager hiding a column that sales reps can see inverts the
	// visibility ordering.
	cfg.HiddenColumns[RoleManager] = []string{"notes"}
	_, err := NewModel(cfg)
	require.Error(t, err)
}

func TestParseRole(t *testing.T) {
	for _, role := range Roles() {
		parsed, err := ParseRole(string(role))
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
	_, err := ParseRole("root")
	require.Error(t, err)
}
