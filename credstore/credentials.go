package credstore

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
)

// Field keys under each session prefix. One key per field, permission set
// as a JSON array, everything else a plain string.
const (
	keyToken        = "token"
	keyRefreshToken = "refreshToken"
	keyUserRole     = "userRole"
	keyUserID       = "userId"
	keyCompanyID    = "companyId"
	keyPermissions  = "permissions"
	keyUserName     = "userName"
	keyPermsError   = "permissionsError"
)

// Record is the full credential record written at login.
type Record struct {
	Token        string
	RefreshToken string
	Role         string
	UserID       string
	CompanyID    string
	Permissions  []string
	DisplayName  string
}

// Sessions hands out Credentials handles and enforces the single-writer
// discipline: one mutex and one epoch counter per session id. Every write
// happens under the session mutex; ClearAll bumps the epoch so a slow
// login or refresh response arriving afterwards cannot resurrect the
// record it observed.
type Sessions struct {
	store Store

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	mu    sync.Mutex
	epoch uint64
}

func NewSessions(store Store) *Sessions {
	return &Sessions{store: store, entries: make(map[string]*sessionEntry)}
}

// Bind returns the Credentials handle for a session id, creating its
// writer entry on first use.
func (s *Sessions) Bind(id string) *Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &sessionEntry{}
		s.entries[id] = e
	}
	return &Credentials{id: id, store: s.store, entry: e}
}

// LiveIDs lists every session id bound since startup. Used by the
// permission sync worker.
func (s *Sessions) LiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Credentials is the typed view of one session's credential record.
// Reads go straight to the store; no field is cached across calls, so a
// logout or refresh is visible to the very next permission check.
type Credentials struct {
	id    string
	store Store
	entry *sessionEntry
}

func (c *Credentials) ID() string { return c.id }

func (c *Credentials) prefix() string { return "sess:" + c.id + ":" }

func (c *Credentials) key(field string) string { return c.prefix() + field }

// Epoch returns the current write epoch. Callers starting a deferred
// write (refresh, permission sync) capture this first and present it to
// the *IfEpoch setter when the response arrives.
func (c *Credentials) Epoch() uint64 {
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	return c.entry.epoch
}

func (c *Credentials) get(ctx context.Context, field string) (string, error) {
	v, _, err := c.store.Get(ctx, c.key(field))
	return v, err
}

func (c *Credentials) set(ctx context.Context, field, value string) error {
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	return c.store.Set(ctx, c.key(field), value)
}

// Token returns the access token, or "" when the session is logged out.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	return c.get(ctx, keyToken)
}

func (c *Credentials) RefreshToken(ctx context.Context) (string, error) {
	return c.get(ctx, keyRefreshToken)
}

// Role returns the canonical (lower-case) role string.
func (c *Credentials) Role(ctx context.Context) (string, error) {
	v, err := c.get(ctx, keyUserRole)
	return NormalizeRole(v), err
}

func (c *Credentials) UserID(ctx context.Context) (string, error) {
	return c.get(ctx, keyUserID)
}

func (c *Credentials) CompanyID(ctx context.Context) (string, error) {
	return c.get(ctx, keyCompanyID)
}

func (c *Credentials) DisplayName(ctx context.Context) (string, error) {
	return c.get(ctx, keyUserName)
}

// Permissions returns the stored permission set, nil when absent.
func (c *Credentials) Permissions(ctx context.Context) ([]string, error) {
	raw, present, err := c.store.Get(ctx, c.key(keyPermissions))
	if err != nil || !present {
		return nil, err
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return nil, err
	}
	return perms, nil
}

// PermissionsHydrated reports whether a permission set has been written
// for this session at all. False while the first hydration after login
// is still in flight.
func (c *Credentials) PermissionsHydrated(ctx context.Context) (bool, error) {
	_, present, err := c.store.Get(ctx, c.key(keyPermissions))
	return present, err
}

// PermissionsError returns the last sync failure message, "" when none.
func (c *Credentials) PermissionsError(ctx context.Context) (string, error) {
	return c.get(ctx, keyPermsError)
}

func (c *Credentials) SetToken(ctx context.Context, token string) error {
	return c.set(ctx, keyToken, token)
}

// SetTokenIfEpoch writes the access token only if the session epoch still
// matches the one captured before the network call. Returns false when
// the write was discarded because a logout intervened.
func (c *Credentials) SetTokenIfEpoch(ctx context.Context, token string, epoch uint64) (bool, error) {
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	if c.entry.epoch != epoch {
		log.Printf("credstore: discarding stale token write for session %s", c.id)
		return false, nil
	}
	return true, c.store.Set(ctx, c.key(keyToken), token)
}

// SetRole stores the canonical (lower-case) form of role.
func (c *Credentials) SetRole(ctx context.Context, role string) error {
	return c.set(ctx, keyUserRole, NormalizeRole(role))
}

func (c *Credentials) SetDisplayName(ctx context.Context, name string) error {
	return c.set(ctx, keyUserName, name)
}

func (c *Credentials) SetPermissions(ctx context.Context, perms []string) error {
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	if err := c.store.Set(ctx, c.key(keyPermissions), string(raw)); err != nil {
		return err
	}
	return c.store.Delete(ctx, c.key(keyPermsError))
}

// SetPermissionsIfEpoch is the epoch-checked variant used by the sync
// worker so a re-hydration cannot land on a session cleared mid-fetch.
func (c *Credentials) SetPermissionsIfEpoch(ctx context.Context, perms []string, epoch uint64) (bool, error) {
	raw, err := json.Marshal(perms)
	if err != nil {
		return false, err
	}
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	if c.entry.epoch != epoch {
		return false, nil
	}
	if err := c.store.Set(ctx, c.key(keyPermissions), string(raw)); err != nil {
		return false, err
	}
	return true, c.store.Delete(ctx, c.key(keyPermsError))
}

// SetPermissionsError records a sync failure without touching the stored
// grants, so a flaky profile fetch degrades to "error" rather than
// "denied everything".
func (c *Credentials) SetPermissionsError(ctx context.Context, msg string) error {
	return c.set(ctx, keyPermsError, msg)
}

// SetAll persists a full record in one logical transaction: every field
// written under a single hold of the session mutex, role lower-cased at
// the boundary.
func (c *Credentials) SetAll(ctx context.Context, rec Record) error {
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	return c.setAllLocked(ctx, rec)
}

// SetAllIfEpoch is the epoch-checked variant used by the login flow: a
// login response landing after a logout must not resurrect the cleared
// record. Returns false when the write was discarded.
func (c *Credentials) SetAllIfEpoch(ctx context.Context, rec Record, epoch uint64) (bool, error) {
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	if c.entry.epoch != epoch {
		log.Printf("credstore: discarding stale record write for session %s", c.id)
		return false, nil
	}
	return true, c.setAllLocked(ctx, rec)
}

func (c *Credentials) setAllLocked(ctx context.Context, rec Record) error {
	rawPerms, err := json.Marshal(rec.Permissions)
	if err != nil {
		return err
	}
	fields := []struct{ key, value string }{
		{keyToken, rec.Token},
		{keyRefreshToken, rec.RefreshToken},
		{keyUserRole, NormalizeRole(rec.Role)},
		{keyUserID, rec.UserID},
		{keyCompanyID, rec.CompanyID},
		{keyPermissions, string(rawPerms)},
		{keyUserName, rec.DisplayName},
	}
	for _, f := range fields {
		if err := c.store.Set(ctx, c.key(f.key), f.value); err != nil {
			return err
		}
	}
	if err := c.store.Delete(ctx, c.key(keyPermsError)); err != nil {
		return err
	}
	log.Printf("credstore: session %s credentials set (role=%s, token=%s...)",
		c.id, NormalizeRole(rec.Role), tokenPrefix(rec.Token))
	return nil
}

// ClearAll removes every field in one pass under the session mutex and
// bumps the epoch, invalidating any in-flight deferred write.
func (c *Credentials) ClearAll(ctx context.Context) error {
	c.entry.mu.Lock()
	defer c.entry.mu.Unlock()
	c.entry.epoch++
	if err := c.store.DeleteAll(ctx, c.prefix()); err != nil {
		return err
	}
	log.Printf("credstore: session %s cleared", c.id)
	return nil
}

// NormalizeRole lower-cases and trims a role string. Storage and every
// comparison use this canonical form.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// tokenPrefix keeps whole tokens out of the logs.
func tokenPrefix(token string) string {
	if len(token) > 10 {
		return token[:10]
	}
	return token
}
