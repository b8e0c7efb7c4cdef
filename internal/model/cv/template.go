package cv

// TemplateOption is one of the visual styles offered at the template step.
type TemplateOption struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// TemplateStore exposes the template catalog for HTTP handlers.
type TemplateStore interface {
	List() []TemplateOption
	FindByID(id int) (TemplateOption, bool)
}

// MemoryCatalog implements TemplateStore with a fixed in-memory slice.
type MemoryCatalog struct {
	items []TemplateOption
}

// NewMemoryCatalog returns a MemoryCatalog preloaded with the supplied options.
func NewMemoryCatalog(items []TemplateOption) *MemoryCatalog {
	return &MemoryCatalog{items: append([]TemplateOption(nil), items...)}
}

// List returns a copy of the catalog in display order.
func (c *MemoryCatalog) List() []TemplateOption {
	return append([]TemplateOption(nil), c.items...)
}

// FindByID looks up a template by identifier.
func (c *MemoryCatalog) FindByID(id int) (TemplateOption, bool) {
	for _, item := range c.items {
		if item.ID == id {
			return item, true
		}
	}
	return TemplateOption{}, false
}

// SeedTemplates provides the five built-in styles.
func SeedTemplates() []TemplateOption {
	return []TemplateOption{
		{ID: 1, Name: "Modern Blue", Description: "Чист дизајн, сини заглавија, странична лента.", Icon: "fa-file-lines"},
		{ID: 2, Name: "Classic Minimalist", Description: "Црно-бело, serif фонт, многу формално.", Icon: "fa-align-left"},
		{ID: 3, Name: "Creative", Description: "Бои, уникатен распоред, за дизајнери.", Icon: "fa-palette"},
		{ID: 4, Name: "Tech/Code", Description: "Моноспејс фонт, 'dark mode' стил.", Icon: "fa-code"},
		{ID: 5, Name: "Executive", Description: "Елегантно, центрирано, многу празен простор.", Icon: "fa-user-tie"},
	}
}
