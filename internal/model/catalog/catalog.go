package catalog

// Product is a sellable item with its remaining stock.
// JSON shape matches the products.json data file.
type Product struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// StaffMember is a bookable member of staff. Availability entries stay in the
// staff-authored format; they are only normalized at comparison time.
type StaffMember struct {
	Name         string   `json:"name"`
	Availability []string `json:"availability"`
}

// Profile describes the store itself, used for greetings, informational
// replies and the free-form system prompt.
type Profile struct {
	StoreName         string   `json:"store_name"`
	StoreDescription  string   `json:"store_description"`
	ProductCategories []string `json:"product_categories"`
}

// DefaultProfile is used when description.json is absent.
func DefaultProfile() Profile {
	return Profile{
		StoreName:         "Unknown Store",
		StoreDescription:  "No description available.",
		ProductCategories: []string{},
	}
}

// SeedProducts is used when products.json is absent.
func SeedProducts() []Product {
	return []Product{
		{Name: "Laptop", Quantity: 10},
		{Name: "Phone", Quantity: 15},
	}
}
