package models

import "github.com/shopspring/decimal"

// Category is menu reference data maintained outside the bot.
type Category struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Slug string `json:"slug" yaml:"slug"`
}

type Product struct {
	ID         int64           `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	Price      decimal.Decimal `json:"price" yaml:"price"`
	Image      string          `json:"image,omitempty" yaml:"image"`
	CategoryID int64           `json:"categoryId" yaml:"categoryId"`
}

// DisplayPrice renders the price with exactly two decimal digits.
func (p Product) DisplayPrice() string {
	return p.Price.StringFixed(2)
}

type Order struct {
	ID    int64       `json:"id" yaml:"id"`
	Lines []OrderLine `json:"lines,omitempty" yaml:"lines"`
}

type OrderLine struct {
	ID        int64 `json:"id" yaml:"id"`
	OrderID   int64 `json:"orderId" yaml:"orderId"`
	ProductID int64 `json:"productId" yaml:"productId"`
	Quantity  int   `json:"quantity" yaml:"quantity"`
}

// Role tags the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
