package cv

// Draft accumulates the answers collected across the data-gathering steps.
// Empty string means the field has not been answered yet.
type Draft struct {
	ContactInfo    string `json:"contactInfo,omitempty"`
	TargetRole     string `json:"targetRole,omitempty"`
	Experience     string `json:"experience,omitempty"`
	Education      string `json:"education,omitempty"`
	Skills         string `json:"skills,omitempty"`
	PhotoURL       string `json:"photoUrl,omitempty"`
	TemplateChoice string `json:"templateChoice,omitempty"`
}

// PlaceholderPhotoURL replaces the photo when the user skips that step.
const PlaceholderPhotoURL = "https://via.placeholder.com/150"

