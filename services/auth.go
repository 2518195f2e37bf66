package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/fieldserve/authgate/authz"
	"github.com/fieldserve/authgate/credstore"
)

// Landing routes by role after login.
const (
	RouteSuperAdminDashboard = "/superadmin/dashboard"
	RouteAdminDashboard      = "/admin/dashboard"
	RouteDashboard           = "/dashboard"
	RouteLogin               = "/login"
	RouteUnauthorized        = "/unauthorized"
)

// AuthService implements the login/logout flow against the upstream
// backend and the credential store.
type AuthService struct {
	Backend *BackendClient
}

func NewAuthService(backend *BackendClient) *AuthService {
	return &AuthService{Backend: backend}
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

type loginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Role         string   `json:"role"`
	ID           string   `json:"id"`
	CompanyID    string   `json:"company_id"`
	Permissions  []string `json:"permissions"`
	Name         string   `json:"name"`
}

// Session is the caller-facing result of a successful login.
type Session struct {
	Role        string `json:"role"`
	UserID      string `json:"user_id"`
	CompanyID   string `json:"company_id"`
	DisplayName string `json:"display_name"`
	Landing     string `json:"landing"`
}

// Login submits credentials upstream exactly once and, on success,
// persists the full credential record in one logical transaction. On
// failure the record is left untouched and the server's message is
// returned verbatim. A logout racing the upstream call wins: the
// response is discarded and ErrSessionEnded returned.
func (s *AuthService) Login(ctx context.Context, creds *credstore.Credentials, companyName, email, password string) (*Session, error) {
	epoch := creds.Epoch()
	env, err := s.Backend.Post(ctx, "/user-login/", loginRequest{
		Email:       email,
		Password:    password,
		CompanyName: companyName,
	}, "")
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := decodeData(env, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response missing access token")
	}

	name := resp.Name
	if name == "" {
		name = emailLocalPart(email)
	}

	perms := resp.Permissions
	if len(perms) == 0 && !authz.IsBypass(resp.Role) {
		perms = authz.DefaultPermissions(resp.Role)
	}
	perms = grantDashboard(perms)

	wrote, err := creds.SetAllIfEpoch(ctx, credstore.Record{
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Role:         resp.Role,
		UserID:       resp.ID,
		CompanyID:    resp.CompanyID,
		Permissions:  perms,
		DisplayName:  name,
	}, epoch)
	if err != nil {
		return nil, err
	}
	if !wrote {
		return nil, ErrSessionEnded
	}

	role := credstore.NormalizeRole(resp.Role)
	log.Printf("auth: session %s logged in as %s", creds.ID(), role)
	return &Session{
		Role:        role,
		UserID:      resp.ID,
		CompanyID:   resp.CompanyID,
		DisplayName: name,
		Landing:     landingRoute(role),
	}, nil
}

// Logout destroys the credential record. Idempotent.
func (s *AuthService) Logout(ctx context.Context, creds *credstore.Credentials) error {
	return creds.ClearAll(ctx)
}

// SyncPermissions re-reads the session's permission set from the
// upstream profile endpoint and rewrites the stored set, keeping the
// dashboard grant. A fetch failure is recorded as an error flag instead
// of clearing grants.
func (s *AuthService) SyncPermissions(ctx context.Context, creds *credstore.Credentials) error {
	token, err := creds.Token(ctx)
	if err != nil || token == "" {
		return err
	}
	epoch := creds.Epoch()

	env, err := s.Backend.Get(ctx, "/user-profile/", token)
	if err != nil {
		_ = creds.SetPermissionsError(ctx, err.Error())
		return err
	}
	var resp struct {
		Permissions []string `json:"permissions"`
	}
	if err := decodeData(env, &resp); err != nil {
		_ = creds.SetPermissionsError(ctx, err.Error())
		return err
	}
	_, err = creds.SetPermissionsIfEpoch(ctx, grantDashboard(resp.Permissions), epoch)
	return err
}

// grantDashboard appends the synthetic view_dashboard capability the
// client side has always granted on top of server data. Deliberately a
// separate, named step so it is easy to find and change.
func grantDashboard(perms []string) []string {
	for _, p := range perms {
		if p == authz.PermViewDashboard {
			return perms
		}
	}
	out := make([]string, 0, len(perms)+1)
	out = append(out, perms...)
	return append(out, authz.PermViewDashboard)
}

func landingRoute(role string) string {
	switch credstore.NormalizeRole(role) {
	case authz.RoleSuperAdmin:
		return RouteSuperAdminDashboard
	case authz.RoleAdmin:
		return RouteAdminDashboard
	default:
		if authz.KnownRole(role) {
			return RouteDashboard
		}
		return RouteUnauthorized
	}
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

func decodeData(env *Envelope, out any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("upstream response missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("malformed upstream data: %w", err)
	}
	return nil
}
