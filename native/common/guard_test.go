package common

import (
	"errors"
	"testing"
)

type stubPauseView struct{ paused map[string]bool }

func (v stubPauseView) IsPaused(module string) bool { return v.paused[module] }

type stubRoleView struct{ grants map[string]bool }

func (v stubRoleView) HasRole(role string, addr []byte) bool {
	return v.grants[role+string(addr)]
}

func TestGuard(t *testing.T) {
	if err := Guard(nil, "sale"); err != nil {
		t.Fatalf("nil view must disable the check: %v", err)
	}
	view := stubPauseView{paused: map[string]bool{"sale": true}}
	if err := Guard(view, ""); err != nil {
		t.Fatalf("empty module must disable the check: %v", err)
	}
	if err := Guard(view, "sale"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(view, "other"); err != nil {
		t.Fatalf("unpaused module rejected: %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	var addr [20]byte
	addr[0] = 0x01

	if err := RequireRole(nil, "ROLE", addr); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("nil view must deny: %v", err)
	}
	view := stubRoleView{grants: map[string]bool{"ROLE" + string(addr[:]): true}}
	if err := RequireRole(view, "ROLE", addr); err != nil {
		t.Fatalf("granted role denied: %v", err)
	}
	if err := RequireRole(view, "OTHER", addr); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ungranted role allowed")
	}
}
