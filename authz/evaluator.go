package authz

import (
	"context"
	"errors"
	"fmt"
)

// CredentialSource is the slice of the credential store the evaluator
// reads. Satisfied by *credstore.Credentials.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
	Role(ctx context.Context) (string, error)
	Permissions(ctx context.Context) ([]string, error)
	PermissionsHydrated(ctx context.Context) (bool, error)
	PermissionsError(ctx context.Context) (string, error)
}

// ErrPermissionsUnavailable is set on a snapshot when the stored
// permission set could not be read or refreshed.
var ErrPermissionsUnavailable = errors.New("permissions unavailable")

// Snapshot is one consistent read of the authorization inputs. It is
// taken fresh for every decision; nothing is cached across credential
// mutations.
type Snapshot struct {
	Authenticated bool
	Role          string
	Permissions   map[string]struct{}

	// Loading is true while the session is authenticated but its first
	// permission hydration has not landed yet. Callers must not treat
	// Loading as denied.
	Loading bool

	// Err carries a permission read/sync failure. Distinct from both
	// granted and denied so screens can show an error instead of a
	// silent lockout.
	Err error
}

// Evaluator answers "can the current session perform capability X". It
// is the only component allowed to apply the bypass-role rule.
type Evaluator struct {
	creds CredentialSource
}

func NewEvaluator(creds CredentialSource) *Evaluator {
	return &Evaluator{creds: creds}
}

// Take reads the credential record and builds a snapshot. Store errors
// surface on Snapshot.Err rather than failing the call, so the route
// guard can still make its unauthenticated decision.
func (e *Evaluator) Take(ctx context.Context) Snapshot {
	var snap Snapshot

	token, err := e.creds.Token(ctx)
	if err != nil {
		snap.Err = fmt.Errorf("%w: %v", ErrPermissionsUnavailable, err)
		return snap
	}
	snap.Authenticated = token != ""

	role, err := e.creds.Role(ctx)
	if err != nil {
		snap.Err = fmt.Errorf("%w: %v", ErrPermissionsUnavailable, err)
		return snap
	}
	snap.Role = role

	// Bypass roles never consult the permission set; skip hydration
	// checks so an empty set cannot delay or deny them.
	if IsBypass(role) {
		return snap
	}

	hydrated, err := e.creds.PermissionsHydrated(ctx)
	if err != nil {
		snap.Err = fmt.Errorf("%w: %v", ErrPermissionsUnavailable, err)
		return snap
	}
	if snap.Authenticated && !hydrated {
		snap.Loading = true
		return snap
	}

	if msg, err := e.creds.PermissionsError(ctx); err == nil && msg != "" {
		snap.Err = fmt.Errorf("%w: %s", ErrPermissionsUnavailable, msg)
	}

	perms, err := e.creds.Permissions(ctx)
	if err != nil {
		snap.Err = fmt.Errorf("%w: %v", ErrPermissionsUnavailable, err)
		return snap
	}
	snap.Permissions = make(map[string]struct{}, len(perms))
	for _, p := range perms {
		snap.Permissions[p] = struct{}{}
	}
	return snap
}

// HasPermission on a snapshot: bypass first, then set membership. An
// empty or missing set denies.
func (s Snapshot) HasPermission(capability string) bool {
	if IsBypass(s.Role) {
		return true
	}
	_, ok := s.Permissions[capability]
	return ok
}

// HasAnyPermission is true when the bypass rule applies or at least one
// listed capability is granted. False for an empty list on non-bypass
// roles.
func (s Snapshot) HasAnyPermission(capabilities ...string) bool {
	if IsBypass(s.Role) {
		return true
	}
	for _, c := range capabilities {
		if s.HasPermission(c) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true when the bypass rule applies or every listed
// capability is granted.
func (s Snapshot) HasAllPermissions(capabilities ...string) bool {
	if IsBypass(s.Role) {
		return true
	}
	for _, c := range capabilities {
		if !s.HasPermission(c) {
			return false
		}
	}
	return true
}

// HasPermission resolves a fresh snapshot and checks one capability.
func (e *Evaluator) HasPermission(ctx context.Context, capability string) bool {
	return e.Take(ctx).HasPermission(capability)
}

// HasAnyPermission resolves a fresh snapshot and ORs over the list.
func (e *Evaluator) HasAnyPermission(ctx context.Context, capabilities ...string) bool {
	return e.Take(ctx).HasAnyPermission(capabilities...)
}

// HasAllPermissions resolves a fresh snapshot and ANDs over the list.
func (e *Evaluator) HasAllPermissions(ctx context.Context, capabilities ...string) bool {
	return e.Take(ctx).HasAllPermissions(capabilities...)
}
