package flow

// Category is one entry of the fixed item category set.
type Category struct {
	ID    string
	Title string
}

// Categories lists the selectable item categories in display order.
var Categories = []Category{
	{ID: "keys", Title: "🔑 Ключи"},
	{ID: "phone", Title: "📱 Телефон"},
	{ID: "wallet", Title: "👛 Кошелёк"},
	{ID: "document", Title: "📄 Документы"},
	{ID: "pet", Title: "🐾 Питомец"},
	{ID: "bag", Title: "🎒 Сумка/рюкзак"},
}

var categoryTitles = func() map[string]string {
	m := make(map[string]string, len(Categories))
	for _, c := range Categories {
		m[c.ID] = c.Title
	}
	return m
}()

// KnownCategory reports whether id belongs to the registered category set.
func KnownCategory(id string) bool {
	_, ok := categoryTitles[id]
	return ok
}

// CategoryTitle returns the display title for a category id, or the id
// itself when it is not registered.
func CategoryTitle(id string) string {
	if title, ok := categoryTitles[id]; ok {
		return title
	}
	return id
}
