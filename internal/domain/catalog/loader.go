package catalog

import (
	"bytes"
	_ "embed"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

// seedData is the packed store catalog, produced by cmd/catalog-pack.
//
//go:embed seed/products.json.gz
var seedData []byte

// Load decompresses and decodes the embedded catalog seed.
func Load() (*Provider, error) {
	zr, err := pgzip.NewReader(bytes.NewReader(seedData))
	if err != nil {
		return nil, errors.Wrap(err, "open seed")
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "decompress seed")
	}

	categories, products, err := decodeSeed(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}

	return NewProvider(categories, products), nil
}

// MustLoad is Load that panics on failure. The seed is compiled into the
// binary, so a failure here is a build defect, not a runtime condition.
func MustLoad() *Provider {
	p, err := Load()
	if err != nil {
		panic(err)
	}
	return p
}

func decodeSeed(raw []byte) ([]Category, []Product, error) {
	var (
		categories []Category
		products   []Product
	)

	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "categories":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCategory(d)
				if err != nil {
					return err
				}
				categories = append(categories, c)
				return nil
			})
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				products = append(products, p)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, nil, err
	}

	if len(categories) == 0 || len(products) == 0 {
		return nil, nil, errors.New("seed is empty")
	}
	return categories, products, nil
}

func decodeCategory(d *jx.Decoder) (Category, error) {
	var c Category
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "icon":
			c.Icon, err = d.Str()
		case "color":
			c.Color, err = d.Str()
		case "itemCount":
			c.ItemCount, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func decodeProduct(d *jx.Decoder) (Product, error) {
	var p Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			var s string
			if s, err = d.Str(); err == nil {
				p.Price, err = decimal.NewFromString(s)
			}
		case "description":
			p.Description, err = d.Str()
		case "inStock":
			p.InStock, err = d.Bool()
		case "stockCount":
			p.StockCount, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}
