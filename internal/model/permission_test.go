package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPermissionKey(t *testing.T) {
	cases := []struct {
		key    string
		base   string
		action string
	}{
		{"agents.view", "agents", "view"},
		{"agents.view_all", "agents", "view_all"},
		{"workflows.manage_all", "workflows", "manage_all"},
		{"agents.approve", "agents", "approve"},
		// a non-standard leaf stays part of the base
		{"nav.dashboard", "nav.dashboard", ""},
		{"audit_logs.view", "audit_logs", "view"},
		{"dashboard", "dashboard", ""},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			base, action := SplitPermissionKey(tc.key)
			assert.Equal(t, tc.base, base)
			assert.Equal(t, tc.action, action)
		})
	}
}

func TestViewAction(t *testing.T) {
	assert.True(t, ViewAction(ActionView))
	assert.True(t, ViewAction(ActionViewAll))
	assert.False(t, ViewAction(ActionEdit))
	assert.False(t, ViewAction(ActionManageAll))
	assert.False(t, ViewAction(""))
}
