package catalog

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
)

// Category represents a product category shown on the storefront dashboard.
//
// ItemCount is a display-only label carried over from the merchandising data.
// It is not reconciled with the actual number of products in the category and
// must not be treated as authoritative.
type Category struct {
	ID        string
	Name      string
	Icon      string
	Color     string
	ItemCount int
}

// Product represents a catalog item available for purchase. Products are
// immutable once the catalog is loaded.
type Product struct {
	ID          string
	Category    string
	Name        string
	Price       decimal.Decimal
	Description string
	InStock     bool
	StockCount  int
}

// Provider serves the fixed store catalog. All data is held in memory and
// never mutated, so reads are safe from any goroutine.
type Provider struct {
	categories []Category
	products   []Product
	byCategory map[string][]Product
	byID       map[string]*Product
	catByID    map[string]*Category
}

// NewProvider builds a Provider over the given catalog data. Product order
// within a category follows the input order.
func NewProvider(categories []Category, products []Product) *Provider {
	p := &Provider{
		categories: categories,
		products:   products,
		byCategory: make(map[string][]Product, len(categories)),
		byID:       make(map[string]*Product, len(products)),
		catByID:    make(map[string]*Category, len(categories)),
	}
	for i := range categories {
		p.catByID[categories[i].ID] = &p.categories[i]
	}
	for i := range products {
		prod := &p.products[i]
		p.byID[prod.ID] = prod
		p.byCategory[prod.Category] = append(p.byCategory[prod.Category], *prod)
	}
	return p
}

// Categories returns all store categories in display order.
func (p *Provider) Categories() []Category {
	out := make([]Category, len(p.categories))
	copy(out, p.categories)
	return out
}

// CategoryByID returns a single category or ErrCategoryNotFound.
func (p *Provider) CategoryByID(id string) (*Category, error) {
	c, ok := p.catByID[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

// ProductsByCategory returns the products of a category in catalog order.
// It returns ErrCategoryNotFound for an unknown category ID.
func (p *Provider) ProductsByCategory(categoryID string) ([]Product, error) {
	if _, ok := p.catByID[categoryID]; !ok {
		return nil, ErrCategoryNotFound
	}
	src := p.byCategory[categoryID]
	out := make([]Product, len(src))
	copy(out, src)
	return out, nil
}

// ProductByID returns a single product or ErrProductNotFound.
func (p *Provider) ProductByID(id string) (*Product, error) {
	prod, ok := p.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	pp := *prod
	return &pp, nil
}
