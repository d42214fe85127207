package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleLevelOrder(t *testing.T) {
	assert.Less(t, RoleViewer.Level(), RoleContributor.Level())
	assert.Less(t, RoleContributor.Level(), RoleApprover.Level())
	assert.Less(t, RoleApprover.Level(), RoleAdmin.Level())
	assert.Equal(t, -1, Role("superuser").Level())
}

func TestRoleAtLeast(t *testing.T) {
	ladder := []Role{RoleViewer, RoleContributor, RoleApprover, RoleAdmin}
	for i, caller := range ladder {
		for j, min := range ladder {
			got := caller.AtLeast(min)
			assert.Equal(t, i >= j, got, "caller=%s min=%s", caller, min)
		}
	}
	// Unknown roles rank below every tier, including Viewer.
	assert.False(t, Role("superuser").AtLeast(RoleViewer))
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"viewer", RoleViewer, true},
		{"Contributor", RoleContributor, true},
		{"APPROVER", RoleApprover, true},
		{" admin ", RoleAdmin, true},
		{"owner", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
