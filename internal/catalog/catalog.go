// Package catalog reads seed catalogs: products, distributors, customers and
// their initial quotations, as one JSON document.
package catalog

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/gadgethub-api/internal/domain/customer"
	"github.com/xenking/gadgethub-api/internal/domain/distributor"
	"github.com/xenking/gadgethub-api/internal/domain/product"
	"github.com/xenking/gadgethub-api/internal/domain/quotation"
)

// Catalog is a complete seed data set. Products, distributors and customers
// carry explicit IDs; quotation IDs are assigned on insert in slice order.
type Catalog struct {
	Products     []product.Product
	Distributors []distributor.Distributor
	Customers    []customer.Customer
	Quotations   []quotation.Quotation
}

// Open reads a catalog file, transparently decompressing names ending in .gz.
func Open(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return Decode(r)
}

// Parse decodes an in-memory catalog.
func Parse(data []byte) (*Catalog, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a catalog document and checks its references.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	d := jx.Decode(r, 64*1024)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "products":
			if err := d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				c.Products = append(c.Products, p)
				return err
			}); err != nil {
				return errors.Wrap(err, "products")
			}
			return nil
		case "distributors":
			if err := d.Arr(func(d *jx.Decoder) error {
				v, err := decodeDistributor(d)
				c.Distributors = append(c.Distributors, v)
				return err
			}); err != nil {
				return errors.Wrap(err, "distributors")
			}
			return nil
		case "customers":
			if err := d.Arr(func(d *jx.Decoder) error {
				v, err := decodeCustomer(d)
				c.Customers = append(c.Customers, v)
				return err
			}); err != nil {
				return errors.Wrap(err, "customers")
			}
			return nil
		case "quotations":
			if err := d.Arr(func(d *jx.Decoder) error {
				q, err := DecodeQuotation(d)
				c.Quotations = append(c.Quotations, q)
				return err
			}); err != nil {
				return errors.Wrap(err, "quotations")
			}
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that IDs are positive and unique and that every quotation
// references a product and distributor of the catalog.
func (c *Catalog) Validate() error {
	products := make(map[int64]struct{}, len(c.Products))
	for _, p := range c.Products {
		if err := addID(products, p.ID, "product"); err != nil {
			return err
		}
	}
	distributors := make(map[int64]struct{}, len(c.Distributors))
	for _, d := range c.Distributors {
		if err := addID(distributors, d.ID, "distributor"); err != nil {
			return err
		}
	}
	customers := make(map[int64]struct{}, len(c.Customers))
	for _, cu := range c.Customers {
		if err := addID(customers, cu.ID, "customer"); err != nil {
			return err
		}
	}
	for i, q := range c.Quotations {
		if _, ok := products[q.ProductID]; !ok {
			return errors.Errorf("quotation %d: unknown product %d", i, q.ProductID)
		}
		if _, ok := distributors[q.DistributorID]; !ok {
			return errors.Errorf("quotation %d: unknown distributor %d", i, q.DistributorID)
		}
		if !q.PricePerUnit.IsPositive() {
			return errors.Errorf("quotation %d: price must be positive, got %s", i, q.PricePerUnit)
		}
	}
	return nil
}

func addID(seen map[int64]struct{}, id int64, kind string) error {
	if id <= 0 {
		return errors.Errorf("%s id must be positive, got %d", kind, id)
	}
	if _, dup := seen[id]; dup {
		return errors.Errorf("duplicate %s id %d", kind, id)
	}
	seen[id] = struct{}{}
	return nil
}

func decodeProduct(d *jx.Decoder) (p product.Product, err error) {
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "productId":
			p.ID, err = d.Int64()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return p, err
}

func decodeDistributor(d *jx.Decoder) (v distributor.Distributor, err error) {
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "distributorId":
			v.ID, err = d.Int64()
		case "name":
			v.Name, err = d.Str()
		case "contactEmail":
			v.ContactEmail, err = d.Str()
		case "contactPhone":
			v.ContactPhone, err = d.Str()
		case "address":
			v.Address, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return v, err
}

func decodeCustomer(d *jx.Decoder) (v customer.Customer, err error) {
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "customerId":
			v.ID, err = d.Int64()
		case "fullName":
			v.FullName, err = d.Str()
		case "email":
			v.Email, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return v, err
}

// DecodeQuotation reads one quotation object. The price may be a JSON number
// or a numeric string. A quotationId field is ignored.
func DecodeQuotation(d *jx.Decoder) (q quotation.Quotation, err error) {
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "productId":
			q.ProductID, err = d.Int64()
		case "distributorId":
			q.DistributorID, err = d.Int64()
		case "pricePerUnit":
			q.PricePerUnit, err = decodePrice(d)
		case "availability":
			q.Availability, err = d.Int()
		case "estimatedDeliveryDays":
			q.EstimatedDeliveryDays, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return q, err
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(string(n))
}
