// Package authz decides what a signed-in session may see and do.
// It is the single authority for role and permission checks; handlers
// never compare role strings themselves.
package authz

// Capability names gating one action or view each. Closed catalog, name
// uniqueness is the only relationship.
const (
	// Pages
	PermViewDashboard = "view_dashboard"
	PermViewClients   = "view_clients"
	PermViewLocations = "view_locations"

	// Clients
	PermCreateClient = "create_client"
	PermEditClient   = "edit_client"
	PermDeleteClient = "delete_client"

	// Locations
	PermCreateLocation = "create_location"
	PermEditLocation   = "edit_location"
	PermDeleteLocation = "delete_location"

	// Materials
	PermViewMaterials           = "view_materials"
	PermCreateMaterial          = "create_material"
	PermEditMaterial            = "edit_material"
	PermDeleteMaterial          = "delete_material"
	PermViewMaterialRequests    = "view_material_requests"
	PermManageMaterialRequests  = "manage_material_requests"
	PermViewMaterialConsumption = "view_material_consumption"
	PermManageStore             = "manage_store"

	// Terms & conditions
	PermViewTermsAndConditions = "view_terms_and_conditions"
	PermViewGeneralTerms       = "view_general_terms"
	PermViewPaymentTerms       = "view_payment_terms"
	PermViewCompletionTerms    = "view_completion_terms"
	PermViewQuotationTerms     = "view_quotation_terms"
	PermViewWarrantyTerms      = "view_warranty_terms"
	PermCreateTerms            = "create_terms"
	PermEditTerms              = "edit_terms"
	PermDeleteTerms            = "delete_terms"
)

var catalog = []string{
	PermViewDashboard,
	PermViewClients,
	PermViewLocations,
	PermCreateClient,
	PermEditClient,
	PermDeleteClient,
	PermCreateLocation,
	PermEditLocation,
	PermDeleteLocation,
	PermViewMaterials,
	PermCreateMaterial,
	PermEditMaterial,
	PermDeleteMaterial,
	PermViewMaterialRequests,
	PermManageMaterialRequests,
	PermViewMaterialConsumption,
	PermManageStore,
	PermViewTermsAndConditions,
	PermViewGeneralTerms,
	PermViewPaymentTerms,
	PermViewCompletionTerms,
	PermViewQuotationTerms,
	PermViewWarrantyTerms,
	PermCreateTerms,
	PermEditTerms,
	PermDeleteTerms,
}

var catalogSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(catalog))
	for _, p := range catalog {
		m[p] = struct{}{}
	}
	return m
}()

// Catalog returns a copy of the full capability list.
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// IsKnown reports whether a capability name is in the catalog. Bypass
// roles are granted even unknown capabilities, so this is informational
// only (logging, admin tooling).
func IsKnown(capability string) bool {
	_, ok := catalogSet[capability]
	return ok
}
