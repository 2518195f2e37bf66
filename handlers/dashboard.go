package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/authgate/authz"
	"github.com/fieldserve/authgate/credstore"
)

// Dashboard card sets. Order here is render order; the visibility
// filter preserves it.
var clientCards = []authz.ActionCard{
	{Label: "Add Client", Action: "add_client", Route: "/clients/new", RequiredCaps: []string{authz.PermCreateClient}},
	{Label: "View Clients", Action: "view_clients", Route: "/clients", RequiredCaps: []string{authz.PermViewClients}},
	{Label: "Add Location", Action: "add_location", Route: "/locations/new", RequiredCaps: []string{authz.PermCreateLocation}},
	{Label: "View Locations", Action: "view_locations", Route: "/locations", RequiredCaps: []string{authz.PermViewLocations}},
}

var materialCards = []authz.ActionCard{
	{Label: "View Materials", Action: "view_materials", Route: "/materials", RequiredCaps: []string{authz.PermViewMaterials}},
	{Label: "Add Material", Action: "add_material", Route: "/materials/new", RequiredCaps: []string{authz.PermCreateMaterial}},
	{Label: "Material Requests", Action: "material_requests", Route: "/materials/requests", RequiredCaps: []string{authz.PermViewMaterialRequests, authz.PermManageMaterialRequests}},
	{Label: "Material Consumption", Action: "material_consumption", Route: "/materials/consumption", RequiredCaps: []string{authz.PermViewMaterialConsumption}},
	{Label: "Store", Action: "store", Route: "/materials/store", RequiredCaps: []string{authz.PermManageStore}},
}

var termsCards = []authz.ActionCard{
	{Label: "Terms & Conditions", Action: "terms", Route: "/terms", RequiredCaps: []string{authz.PermViewTermsAndConditions}},
	{Label: "General Terms", Action: "general_terms", Route: "/terms/general", RequiredCaps: []string{authz.PermViewGeneralTerms}},
	{Label: "Payment Terms", Action: "payment_terms", Route: "/terms/payment", RequiredCaps: []string{authz.PermViewPaymentTerms}},
	{Label: "Completion Terms", Action: "completion_terms", Route: "/terms/completion", RequiredCaps: []string{authz.PermViewCompletionTerms}},
	{Label: "Quotation Validity", Action: "quotation_terms", Route: "/terms/quotation", RequiredCaps: []string{authz.PermViewQuotationTerms}},
	{Label: "Warranty", Action: "warranty_terms", Route: "/terms/warranty", RequiredCaps: []string{authz.PermViewWarrantyTerms}},
}

type DashboardHandler struct {
	Sessions *credstore.Sessions
}

func NewDashboardHandler(sessions *credstore.Sessions) *DashboardHandler {
	return &DashboardHandler{Sessions: sessions}
}

func (h *DashboardHandler) snapshot(c *gin.Context) authz.Snapshot {
	creds := h.Sessions.Bind(c.GetString(ContextSessionID))
	return authz.NewEvaluator(creds).Take(c.Request.Context())
}

// Dashboard returns the action cards the session may see, grouped by
// section. A section with zero visible cards comes back empty, not as
// an error.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	snap := h.snapshot(c)
	c.JSON(http.StatusOK, gin.H{"status": "Success", "data": gin.H{
		"role": snap.Role,
		"sections": gin.H{
			"clients":   authz.VisibleActions(snap, clientCards),
			"materials": authz.VisibleActions(snap, materialCards),
			"terms":     authz.VisibleActions(snap, termsCards),
		},
	}})
}

// AdminDashboard is the admin landing view; admins are a bypass role so
// every card is visible, but the filter still runs through the single
// authority in authz.
func (h *DashboardHandler) AdminDashboard(c *gin.Context) {
	h.Dashboard(c)
}

// SuperAdminDashboard adds company management, which has no capability
// gate: it is reachable only through the superadmin role allow-list on
// the route itself.
func (h *DashboardHandler) SuperAdminDashboard(c *gin.Context) {
	snap := h.snapshot(c)
	c.JSON(http.StatusOK, gin.H{"status": "Success", "data": gin.H{
		"role": snap.Role,
		"sections": gin.H{
			"companies": []authz.ActionCard{
				{Label: "Company Management", Action: "company_management", Route: "/superadmin/companies"},
				{Label: "Staff Management", Action: "staff_management", Route: "/superadmin/staff"},
			},
			"clients":   authz.VisibleActions(snap, clientCards),
			"materials": authz.VisibleActions(snap, materialCards),
			"terms":     authz.VisibleActions(snap, termsCards),
		},
	}})
}
