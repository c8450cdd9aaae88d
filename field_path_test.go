package goserdes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goserdes "github.com/reoring/goserdes"
)

type member struct {
	Address address `json:"address"`
	Name    string  `json:"name"`
	Age     int
	secret  string
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "name", goserdes.FieldPath(func(m *member) *string { return &m.Name }))
	assert.Equal(t, "Age", goserdes.FieldPath(func(m *member) *int { return &m.Age }))
	assert.Equal(t, "address", goserdes.FieldPath(func(m *member) *address { return &m.Address }))
	// City shares its address with Address; the type tells them apart.
	assert.Equal(t, "address.city", goserdes.FieldPath(func(m *member) *string { return &m.Address.City }))
	assert.Equal(t, "address.postal_code", goserdes.FieldPath(func(m *member) *string { return &m.Address.Zip }))

	// Customer.Email from the shared fixtures.
	assert.Equal(t, "email", goserdes.FieldPath(func(c *Customer) *string { return &c.Email }))
}

func TestFieldPath_Panics(t *testing.T) {
	assert.Panics(t, func() {
		goserdes.FieldPath(func(m *member) *string { return &m.secret })
	})
	assert.Panics(t, func() {
		other := "x"
		goserdes.FieldPath(func(*member) *string { return &other })
	})
	assert.Panics(t, func() {
		goserdes.FieldPath(func(*member) *string { return nil })
	})
}

func TestFieldPath_AsQueryKey(t *testing.T) {
	s := newShop()
	store := goserdes.NewStore()
	for _, p := range []Product{
		{ProdID: "p1", Name: "Laptop", Category: "electronics"},
		{ProdID: "p2", Name: "Desk", Category: "furniture"},
	} {
		_, err := store.Save(mustRecord(t, s.product, p))
		require.NoError(t, err)
	}

	category := goserdes.FieldPath(func(p *Product) *string { return &p.Category })
	got, err := s.product.Filter(store, goserdes.Query{category: "furniture"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ProdID)
}
