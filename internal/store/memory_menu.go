package store

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"botmesero-backend/internal/models"
)

// MenuFixture is the on-disk shape of an in-memory menu. JSON files are
// valid input too since they decode as YAML flow documents.
type MenuFixture struct {
	Categories []models.Category `yaml:"categories"`
	Products   []models.Product  `yaml:"products"`
	Orders     []models.Order    `yaml:"orders"`
}

// MemoryMenu answers the same queries as MenuStore over fixture data. It is
// used when no database is configured.
type MemoryMenu struct {
	categories []models.Category
	products   []models.Product
	lines      []models.OrderLine
}

// NewMemoryMenu validates that every order line references a known product
// and order.
func NewMemoryMenu(f MenuFixture) (*MemoryMenu, error) {
	products := make(map[int64]bool, len(f.Products))
	for _, p := range f.Products {
		products[p.ID] = true
	}
	m := &MemoryMenu{
		categories: append([]models.Category(nil), f.Categories...),
		products:   append([]models.Product(nil), f.Products...),
	}
	for _, o := range f.Orders {
		for _, l := range o.Lines {
			if l.OrderID == 0 {
				l.OrderID = o.ID
			}
			if l.OrderID != o.ID {
				return nil, fmt.Errorf("%w: order line %d belongs to order %d, listed under %d", ErrInvalidInput, l.ID, l.OrderID, o.ID)
			}
			if !products[l.ProductID] {
				return nil, fmt.Errorf("%w: order line %d references unknown product %d", ErrInvalidInput, l.ID, l.ProductID)
			}
			m.lines = append(m.lines, l)
		}
	}
	sort.Slice(m.categories, func(i, j int) bool { return m.categories[i].ID < m.categories[j].ID })
	sort.Slice(m.products, func(i, j int) bool { return m.products[i].ID < m.products[j].ID })
	return m, nil
}

// LoadMenuFixture reads a fixture file. An empty path yields an empty menu.
func LoadMenuFixture(path string) (*MemoryMenu, error) {
	if path == "" {
		return NewMemoryMenu(MenuFixture{})
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu fixture: %w", err)
	}
	var f MenuFixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse menu fixture %s: %w", path, err)
	}
	return NewMemoryMenu(f)
}

func (m *MemoryMenu) ListCategories(_ context.Context) ([]models.Category, error) {
	return append([]models.Category(nil), m.categories...), nil
}

func (m *MemoryMenu) ListProducts(_ context.Context, categoryID int64) ([]models.Product, error) {
	var out []models.Product
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryMenu) MostOrderedProduct(_ context.Context) (*models.Product, error) {
	counts := make(map[int64]int)
	for _, l := range m.lines {
		counts[l.ProductID]++
	}
	var (
		best      *models.Product
		bestCount int
	)
	// products are sorted by id, so strict > keeps the lowest id on ties
	for i := range m.products {
		if c := counts[m.products[i].ID]; c > bestCount {
			p := m.products[i]
			best, bestCount = &p, c
		}
	}
	return best, nil
}
