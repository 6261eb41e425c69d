// Command catalog-pack compiles catalog source files into the compressed
// seed bundle embedded by the server.
//
// The source directory holds categories.json plus one products file per
// category (<categoryID>.json). Every product is validated before packing,
// so a bad price or a product pointing at an unknown category fails the
// build instead of the server.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type category struct {
	id        string
	name      string
	icon      string
	color     string
	itemCount int
}

type product struct {
	id          string
	category    string
	name        string
	price       decimal.Decimal
	description string
	inStock     bool
	stockCount  int
}

func main() {
	var (
		srcDir  string
		outFile string
	)

	flag.StringVar(&srcDir, "src", "catalog", "directory with categories.json and per-category product files")
	flag.StringVar(&outFile, "out", "internal/domain/catalog/seed/products.json.gz", "output seed bundle path")
	flag.Parse()

	if err := run(srcDir, outFile); err != nil {
		slog.Error("catalog pack failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog packed", slog.String("out", outFile))
}

func run(srcDir, outFile string) error {
	categories, err := readCategories(filepath.Join(srcDir, "categories.json"))
	if err != nil {
		return errors.Wrap(err, "read categories")
	}

	slog.Info("packing catalog", slog.Int("categories", len(categories)))

	// One products file per category, parsed concurrently.
	var (
		mu       sync.Mutex
		products []product
	)
	var g errgroup.Group
	for _, c := range categories {
		g.Go(func() error {
			path := filepath.Join(srcDir, c.id+".json")
			list, err := readProducts(path, c.id)
			if err != nil {
				return errors.Wrapf(err, "category %s", c.id)
			}

			slog.Info("parsed category products",
				slog.String("category", c.id),
				slog.Int("products", len(list)),
			)

			mu.Lock()
			products = append(products, list...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Deterministic output: category order from categories.json, products
	// sorted by category then id.
	order := make(map[string]int, len(categories))
	for i, c := range categories {
		order[c.id] = i
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].category != products[j].category {
			return order[products[i].category] < order[products[j].category]
		}
		return products[i].id < products[j].id
	})

	if err := writeBundle(outFile, categories, products); err != nil {
		return errors.Wrap(err, "write bundle")
	}

	slog.Info("bundle written",
		slog.Int("categories", len(categories)),
		slog.Int("products", len(products)),
	)
	return nil
}

func readCategories(path string) ([]category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var categories []category
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var c category
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				c.id, err = d.Str()
			case "name":
				c.name, err = d.Str()
			case "icon":
				c.icon, err = d.Str()
			case "color":
				c.color, err = d.Str()
			case "itemCount":
				c.itemCount, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if c.id == "" || c.name == "" {
			return errors.New("category is missing id or name")
		}
		categories = append(categories, c)
		return nil
	}); err != nil {
		return nil, err
	}

	if len(categories) == 0 {
		return nil, errors.New("no categories defined")
	}
	return categories, nil
}

func readProducts(path, categoryID string) ([]product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var products []product
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var p product
		p.category = categoryID
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				p.id, err = d.Str()
			case "name":
				p.name, err = d.Str()
			case "price":
				var raw string
				if raw, err = d.Str(); err == nil {
					p.price, err = decimal.NewFromString(raw)
				}
			case "description":
				p.description, err = d.Str()
			case "inStock":
				p.inStock, err = d.Bool()
			case "stockCount":
				p.stockCount, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if p.id == "" || p.name == "" {
			return errors.New("product is missing id or name")
		}
		if p.price.IsNegative() {
			return errors.Errorf("product %s has negative price", p.id)
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return products, nil
}

func writeBundle(path string, categories []category, products []product) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("categories")
	e.ArrStart()
	for _, c := range categories {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(c.id)
		e.FieldStart("name")
		e.Str(c.name)
		e.FieldStart("icon")
		e.Str(c.icon)
		e.FieldStart("color")
		e.Str(c.color)
		e.FieldStart("itemCount")
		e.Int(c.itemCount)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("products")
	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.id)
		e.FieldStart("category")
		e.Str(p.category)
		e.FieldStart("name")
		e.Str(p.name)
		e.FieldStart("price")
		e.Str(p.price.String())
		e.FieldStart("description")
		e.Str(p.description)
		e.FieldStart("inStock")
		e.Bool(p.inStock)
		e.FieldStart("stockCount")
		e.Int(p.stockCount)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.ObjEnd()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	if _, err := gz.Write(e.Bytes()); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Close()
}
