package catalog

// Product is a catalog entry: a bakery item or a course.
type Product struct {
	SKU         string  `gorm:"primaryKey" json:"sku"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `json:"description"`
	Category    string  `gorm:"index" json:"category"`
	Level       string  `json:"level"`
	Format      string  `json:"format"`
	Duration    string  `json:"duration"`
	Price       float64 `gorm:"not null" json:"price"`
}
