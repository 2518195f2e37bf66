package authz

import "github.com/fieldserve/authgate/credstore"

// Canonical role names. The credential store lower-cases roles on write,
// so these are the only forms seen at comparison sites.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
	RoleSales      = "sales"
)

// bypassRoles see and can perform every capability, including ones not
// in the catalog, regardless of the stored permission set.
var bypassRoles = map[string]struct{}{
	RoleSuperAdmin: {},
	RoleAdmin:      {},
}

// IsBypass reports whether role short-circuits all permission checks.
// Accepts any casing.
func IsBypass(role string) bool {
	_, ok := bypassRoles[credstore.NormalizeRole(role)]
	return ok
}

// rolePermissions are the fallback grants per non-bypass role, applied
// when the upstream login response carries no explicit permission list.
var rolePermissions = map[string][]string{
	RoleStaff: {
		PermViewDashboard,
		PermViewClients,
		PermViewLocations,
		PermCreateClient,
		PermEditClient,
		PermCreateLocation,
		PermEditLocation,
		PermViewMaterials,
		PermViewMaterialRequests,
		PermViewMaterialConsumption,
		PermViewTermsAndConditions,
		PermViewGeneralTerms,
		PermViewPaymentTerms,
		PermViewCompletionTerms,
		PermViewQuotationTerms,
		PermViewWarrantyTerms,
	},
	RoleSales: {
		PermViewDashboard,
		PermViewClients,
		PermViewLocations,
		PermCreateClient,
		PermViewMaterials,
		PermViewTermsAndConditions,
		PermViewGeneralTerms,
		PermViewPaymentTerms,
		PermViewCompletionTerms,
		PermViewQuotationTerms,
		PermViewWarrantyTerms,
	},
}

// DefaultPermissions returns the built-in grant list for a role, nil for
// roles without one. Bypass roles never consult a permission list.
func DefaultPermissions(role string) []string {
	perms, ok := rolePermissions[credstore.NormalizeRole(role)]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// KnownRole reports whether the role has a dashboard to land on.
func KnownRole(role string) bool {
	r := credstore.NormalizeRole(role)
	if _, ok := bypassRoles[r]; ok {
		return true
	}
	_, ok := rolePermissions[r]
	return ok
}
