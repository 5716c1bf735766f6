package searchrev

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Delimiters of the product list encoding: entries are separated by
// ProductSep and the fields of an entry by ProductFieldSep.
const (
	ProductSep      = ","
	ProductFieldSep = ";"
)

// revenueField is the position of the revenue within a product entry.
const revenueField = 3

// Product is one entry of a product list.
type Product struct {
	Category string
	Name     string
	Quantity string
	Revenue  decimal.Decimal

	// Extra holds the fields after the revenue (custom events, merchandising
	// eVars) verbatim so that Encode can reproduce them.
	Extra []string
}

// ProductList is the decoded form of the product_list column.
type ProductList []Product

// ProductEntryError describes a malformed product entry. It is wrapped into a
// RevenueParseError by the RevenueExtractor.
type ProductEntryError struct {
	Entry  int
	Reason string
}

func (e *ProductEntryError) Error() string {
	return e.Reason
}

// DecodeProductList decodes a product list. Every entry needs at least the
// four fields up to and including the revenue. An empty revenue field is zero
// revenue; anything else that isn't a decimal number is an error. An empty
// string decodes to an empty list.
func DecodeProductList(s string) (ProductList, error) {
	if strings.TrimSpace(s) == "" {
		return ProductList{}, nil
	}
	entries := strings.Split(s, ProductSep)
	pl := make(ProductList, 0, len(entries))
	for i, entry := range entries {
		fields := strings.Split(entry, ProductFieldSep)
		if len(fields) <= revenueField {
			return nil, &ProductEntryError{Entry: i, Reason: "entry '" + entry + "' has too few fields"}
		}
		p := Product{
			Category: fields[0],
			Name:     fields[1],
			Quantity: fields[2],
			Extra:    fields[revenueField+1:],
		}
		if rev := strings.TrimSpace(fields[revenueField]); rev != "" {
			var err error
			p.Revenue, err = decimal.NewFromString(rev)
			if err != nil {
				return nil, &ProductEntryError{Entry: i, Reason: errors.Wrapf(err, "revenue '%s' in entry '%s'", rev, entry).Error()}
			}
		}
		pl = append(pl, p)
	}
	return pl, nil
}

// DecodePurchaseList decodes the product list of a purchase hit. Unlike
// DecodeProductList it requires at least one entry and a revenue on every
// entry, since a purchase whose revenue can't be read must not be reported
// as zero.
func DecodePurchaseList(s string) (ProductList, error) {
	if strings.TrimSpace(s) == "" {
		return nil, &ProductEntryError{Entry: 0, Reason: "empty product list"}
	}
	entries := strings.Split(s, ProductSep)
	for i, entry := range entries {
		fields := strings.Split(entry, ProductFieldSep)
		if len(fields) > revenueField && strings.TrimSpace(fields[revenueField]) == "" {
			return nil, &ProductEntryError{Entry: i, Reason: "entry '" + entry + "' has no revenue"}
		}
	}
	return DecodeProductList(s)
}

// Encode is the inverse of DecodeProductList. Zero revenue is written as an
// empty field.
func (pl ProductList) Encode() string {
	entries := make([]string, len(pl))
	for i, p := range pl {
		fields := make([]string, 0, revenueField+1+len(p.Extra))
		rev := ""
		if !p.Revenue.IsZero() {
			rev = p.Revenue.String()
		}
		fields = append(fields, p.Category, p.Name, p.Quantity, rev)
		fields = append(fields, p.Extra...)
		entries[i] = strings.Join(fields, ProductFieldSep)
	}
	return strings.Join(entries, ProductSep)
}

// Total sums the revenue of every entry.
func (pl ProductList) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range pl {
		total = total.Add(p.Revenue)
	}
	return total
}
