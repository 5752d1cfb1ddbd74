package entity

// Product tiers sold through checkout.
const (
	ProductCore       = "core"
	ProductCommunity  = "community"
	ProductCoaching   = "coaching"
	ProductConsulting = "consulting"
)

type Product struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	AmountCents int64  `yaml:"amount_cents"`
	Recurring   bool   `yaml:"recurring"`
}

var DefaultProducts = []Product{
	{Slug: ProductCore, Name: "7-Day MVP Validation System", AmountCents: 49700},
	{Slug: ProductCommunity, Name: "Community Access", AmountCents: 9700, Recurring: true},
	{Slug: ProductCoaching, Name: "Implementation Coaching", AmountCents: 99700},
	{Slug: ProductConsulting, Name: "Custom Consulting", AmountCents: 500000},
}
