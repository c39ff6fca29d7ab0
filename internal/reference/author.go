package reference

// Author is a researcher tracked by the registry.
type Author struct {
	ID          string   `json:"scholar_id"`        // Stable profile identifier
	PrimaryName string   `json:"name"`              // Name as reported by the data source
	Aliases     []string `json:"aliases,omitempty"` // Alternate spellings, matching only

	Affiliation              string `json:"affiliation"`
	LifetimeCitations        int    `json:"total_citations"`
	LifetimeHIndex           int    `json:"h_index"`
	LifetimeI10Index         int    `json:"i10_index"`
	LifetimePublicationCount int    `json:"publication_count"`

	// Optional enrichment, nil when not supplied
	DisplayName   *string `json:"display_name,omitempty"`
	Role          *string `json:"appointment,omitempty"`
	ResearchGroup *string `json:"research_group,omitempty"`
}

// Name returns the preferred display name.
func (a Author) Name() string {
	if a.DisplayName != nil && *a.DisplayName != "" {
		return *a.DisplayName
	}
	if a.PrimaryName != "" {
		return a.PrimaryName
	}
	if len(a.Aliases) > 0 {
		return a.Aliases[0]
	}
	return a.ID
}

// Group returns the research group and whether one is set.
func (a Author) Group() (string, bool) {
	if a.ResearchGroup == nil || *a.ResearchGroup == "" {
		return "", false
	}
	return *a.ResearchGroup, true
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
