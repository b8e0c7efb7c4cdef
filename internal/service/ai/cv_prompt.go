package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/cv-master/backend/internal/model/cv"
)

// TemplateStyle describes how the model should render one catalog entry.
type TemplateStyle struct {
	ID    int
	Name  string
	Rules string
}

// PromptBuilder assembles the system and user instructions for CV generation.
type PromptBuilder struct {
	styles []TemplateStyle
}

// NewPromptBuilder creates a builder with the five built-in template styles.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{styles: defaultStyles()}
}

// SystemInstruction returns the fixed design rules.
func (pb *PromptBuilder) SystemInstruction() string {
	styleLines := make([]string, 0, len(pb.styles))
	for _, style := range pb.styles {
		styleLines = append(styleLines, fmt.Sprintf("%d. %s: %s", style.ID, style.Name, style.Rules))
	}

	return fmt.Sprintf(`You are an expert Frontend Developer and Resume Designer.
Your task is to convert the provided raw user data into a high-quality, professional, single-file HTML CV.

GUIDELINES:
1. Language: The CV content MUST be in Macedonian.
2. Styling: Use embedded CSS (<style> tag) within the HTML. The design must be responsive and print-friendly.
3. Structure: Semantic HTML5.
4. Photo: Use the provided URL. If the user said 'SKIP' or provided invalid data, use '%s'.
5. Template Style: Adapt the design based on the user's chosen template style strictly.

TEMPLATE STYLES:
%s`, cv.PlaceholderPhotoURL, strings.Join(styleLines, "\n"))
}

// UserInstruction interpolates every draft field.
func (pb *PromptBuilder) UserInstruction(draft cv.Draft) string {
	return fmt.Sprintf(`Create a CV for the following user:

Target Role: %s
Contact Details: %s
Experience: %s
Education: %s
Skills: %s
Photo URL: %s

Selected Template ID: %s

Output ONLY the valid HTML code starting with <!DOCTYPE html>. Do not add markdown backticks.`,
		draft.TargetRole,
		draft.ContactInfo,
		draft.Experience,
		draft.Education,
		draft.Skills,
		draft.PhotoURL,
		draft.TemplateChoice,
	)
}

func defaultStyles() []TemplateStyle {
	return []TemplateStyle{
		{ID: 1, Name: "Modern Blue", Rules: "Clean layout, sidebar for contacts, blue headers (#2563eb)."},
		{ID: 2, Name: "Classic Minimalist", Rules: "Black & white, serif fonts (Times New Roman/Georgia), very formal, no sidebar."},
		{ID: 3, Name: "Creative", Rules: "Colorful accents (coral/teal), unique grid layout, modern sans-serif."},
		{ID: 4, Name: "Tech/Code", Rules: "Dark mode appearance (or dark headers), monospace font (Courier/Fira Code), structured like code blocks."},
		{ID: 5, Name: "Executive", Rules: "Elegant, centered header, lots of whitespace, sophisticated serif headings with sans-serif body."},
	}
}
