package goserdes_test

import (
	"context"
	"maps"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/dsl"
)

type Product struct {
	ProdID   string `json:"prod_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type Customer struct {
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	SendAds          bool      `json:"send_ads"`
	Email            string    `json:"email"`
	FlaggedInterests []Product `json:"flagged_interests"`
}

var productSchema = dsl.MustBind[Product](dsl.Object().
	Field("prod_id", dsl.StringOf[string]()).Required().
	Field("name", dsl.StringOf[string]()).Required().
	Field("category", dsl.StringOf[string]()).Required())

var customerSchema = dsl.MustBind[Customer](dsl.Object().
	Field("name", dsl.StringOf[string]()).Required().
	Field("age", dsl.IntOf[int]().Min(18).Max(100)).Required().
	Field("send_ads", dsl.BoolOf[bool]()).Default(false).
	Field("email", dsl.SchemaOf[string](dsl.String().Email())).Required().
	Field("flagged_interests", dsl.OneToMany(productSchema)).Required())

type shop struct {
	catalog  *goserdes.Catalog
	product  *goserdes.Kind[Product]
	customer *goserdes.Kind[Customer]
}

// newShop registers the product and customer kinds in a fresh catalog.
// Customers list category names under flagged_interests; the prepare hook
// swaps each name for the products of that category already in the store.
func newShop(productOpts ...goserdes.KindOption) shop {
	product := goserdes.NewKind("ProductModel", productSchema, append([]goserdes.KindOption{
		goserdes.WithKey("prod_id"),
		goserdes.WithDirective("products"),
	}, productOpts...)...)
	customer := goserdes.NewKind("CustomerModel", customerSchema,
		goserdes.WithKey("email"),
		goserdes.WithDirective("customers"),
		goserdes.ErrOnDuplicate(),
		goserdes.Renderable(),
		goserdes.WithPrepare(interestsByCategory(product)),
	)
	c := goserdes.NewCatalog()
	c.MustRegister(product, customer)
	return shop{catalog: c, product: product, customer: customer}
}

func interestsByCategory(product *goserdes.Kind[Product]) goserdes.PrepareFunc {
	return func(_ context.Context, store *goserdes.Store, data map[string]any) (map[string]any, error) {
		names, ok := data["flagged_interests"].([]any)
		if !ok {
			return data, nil
		}
		var interests []any
		for _, n := range names {
			category, ok := n.(string)
			if !ok {
				interests = append(interests, n)
				continue
			}
			ps, err := product.Filter(store, goserdes.Query{"category": category})
			if err != nil {
				return nil, err
			}
			for _, p := range ps {
				interests = append(interests, p)
			}
		}
		out := maps.Clone(data)
		out["flagged_interests"] = interests
		return out, nil
	}
}

func prodIDs(ps []Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ProdID
	}
	return out
}
