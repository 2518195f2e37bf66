package authz

// ActionCard is one dashboard entry: a labelled action behind a set of
// capabilities, any one of which makes it visible.
type ActionCard struct {
	Label        string   `json:"label"`
	Action       string   `json:"action"`
	Route        string   `json:"route,omitempty"`
	RequiredCaps []string `json:"required_capabilities,omitempty"`
}

// VisibleActions filters cards down to those the snapshot grants,
// preserving input order. Pure; safe to recompute on every request. An
// empty result is a valid outcome, not an error.
func VisibleActions(snap Snapshot, cards []ActionCard) []ActionCard {
	visible := make([]ActionCard, 0, len(cards))
	for _, card := range cards {
		if snap.HasAnyPermission(card.RequiredCaps...) {
			visible = append(visible, card)
		}
	}
	return visible
}
