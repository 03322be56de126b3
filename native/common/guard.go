package common

import "errors"

var (
	// ErrModulePaused is returned when a guarded module has been paused by an
	// operator and a state-mutating call arrives.
	ErrModulePaused = errors.New("module paused")
	// ErrUnauthorized is returned when the caller lacks the role required for
	// an operation.
	ErrUnauthorized = errors.New("unauthorized")
)

// PauseView exposes the pause switches maintained by the parameter store.
type PauseView interface {
	IsPaused(module string) bool
}

// RoleView exposes role membership maintained by the state backend.
type RoleView interface {
	HasRole(role string, addr []byte) bool
}

// Guard rejects the call with ErrModulePaused when the named module is
// paused. A nil view or empty module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// RequireRole rejects the call with ErrUnauthorized unless the address holds
// the named role. A nil view denies everything: role checks must never pass
// by accident of wiring.
func RequireRole(v RoleView, role string, addr [20]byte) error {
	if v == nil {
		return ErrUnauthorized
	}
	if !v.HasRole(role, addr[:]) {
		return ErrUnauthorized
	}
	return nil
}
