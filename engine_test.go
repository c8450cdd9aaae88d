package goserdes_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/dsl"
	"github.com/reoring/goserdes/format"
	"github.com/reoring/goserdes/manifest"
	"github.com/reoring/goserdes/render"
)

func newEngine(t *testing.T, s shop) *goserdes.Engine {
	t.Helper()
	return goserdes.New(
		goserdes.WithCatalog(s.catalog),
		goserdes.WithRenderer(render.NewDir("testdata/templates")),
	)
}

func manifestEngine(t *testing.T) *goserdes.Engine {
	t.Helper()
	m, err := manifest.LoadFile("testdata/kinds.yaml")
	require.NoError(t, err)
	c := goserdes.NewCatalog()
	require.NoError(t, m.Register(c))
	return goserdes.New(goserdes.WithCatalog(c), goserdes.WithRenderer(render.NewDir("testdata/templates")))
}

func TestEngine_GenerateFromFile(t *testing.T) {
	for _, name := range []string{"customers.json", "customers.yaml", "customers.toml"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newShop()
			e := newEngine(t, s)

			sum, err := e.GenerateFromFile(ctx, filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, goserdes.Summary{
				"ProductModel":  {Loaded: 3, Added: 3},
				"CustomerModel": {Loaded: 2, Added: 2},
			}, sum)
			assert.Equal(t, 5, sum.Total())

			alice, err := s.customer.Get(e.Store(), goserdes.Query{"email": "alice@example.com"})
			require.NoError(t, err)
			assert.Equal(t, 30, alice.Age)
			assert.True(t, alice.SendAds)
			assert.Equal(t, []string{"p1", "p2"}, prodIDs(alice.FlaggedInterests))

			bob, err := s.customer.Get(e.Store(), goserdes.Query{"name": "Bob"})
			require.NoError(t, err)
			assert.Equal(t, []string{"p3", "p1", "p2"}, prodIDs(bob.FlaggedInterests))

			older, err := s.customer.Where(e.Store(), "age > 40")
			require.NoError(t, err)
			require.Len(t, older, 1)
			assert.Equal(t, "Bob", older[0].Name)
		})
	}
}

func TestEngine_GenerateTwiceKeepsStore(t *testing.T) {
	ctx := context.Background()
	s := newShop()
	e := newEngine(t, s)
	_, err := e.GenerateFromFile(ctx, "testdata/customers.yaml")
	require.NoError(t, err)

	// Customers reject duplicates; products do not.
	_, err = e.GenerateFromFile(ctx, "testdata/customers.yaml")
	require.ErrorIs(t, err, goserdes.ErrDuplicate)
	assert.Equal(t, 3, e.Store().Len("ProductModel"))
}

func TestEngine_NestedDirectives(t *testing.T) {
	ctx := context.Background()
	s := newShop()
	e := newEngine(t, s)

	sum, err := e.GenerateFromFile(ctx, "testdata/nested.yaml")
	require.NoError(t, err)
	assert.Equal(t, goserdes.Summary{
		"ProductModel":  {Loaded: 2, Added: 2},
		"CustomerModel": {Loaded: 1, Added: 1},
	}, sum)

	carol, err := s.customer.Get(e.Store(), goserdes.Query{"name": "Carol"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, prodIDs(carol.FlaggedInterests))
}

type lineItem struct {
	SKU string `json:"sku"`
}

type salesOrder struct {
	ID    string     `json:"id"`
	Items []lineItem `json:"items"`
}

func TestEngine_NestedDirectiveDeclaredByOuterKind(t *testing.T) {
	itemSchema := dsl.MustBind[lineItem](dsl.Object().
		Field("sku", dsl.StringOf[string]()).Required())
	items := goserdes.NewKind("Item", itemSchema,
		goserdes.WithKey("sku"), goserdes.WithDirective("items"))
	orders := goserdes.NewKind("Order", dsl.MustBind[salesOrder](dsl.Object().
		Field("id", dsl.StringOf[string]()).Required().
		Field("items", dsl.OneToMany(itemSchema)).Required()),
		goserdes.WithKey("id"), goserdes.WithDirective("orders"))
	c := goserdes.NewCatalog()
	c.MustRegister(items, orders)
	e := goserdes.New(goserdes.WithCatalog(c))

	sum, err := e.GenerateFromMapping(context.Background(), map[string]any{
		"orders": []any{
			map[string]any{"id": "o1", "items": []any{map[string]any{"sku": "a"}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, goserdes.Summary{
		"Item":  {Loaded: 1, Added: 1},
		"Order": {Loaded: 1, Added: 1},
	}, sum)

	o1, err := orders.Get(e.Store(), goserdes.Query{"id": "o1"})
	require.NoError(t, err)
	assert.Equal(t, []lineItem{{SKU: "a"}}, o1.Items)
}

func TestEngine_Duplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("first wins", func(t *testing.T) {
		s := newShop()
		e := newEngine(t, s)
		sum, err := e.GenerateFromFile(ctx, "testdata/duplicates.yaml")
		require.NoError(t, err)
		assert.Equal(t, goserdes.KindSummary{Loaded: 2, Added: 1}, sum["ProductModel"])
		p, err := s.product.Get(e.Store(), goserdes.Query{"prod_id": "p1"})
		require.NoError(t, err)
		assert.Equal(t, "Laptop", p.Name)
	})

	t.Run("rejected", func(t *testing.T) {
		s := newShop(goserdes.ErrOnDuplicate())
		e := newEngine(t, s)
		_, err := e.GenerateFromFile(ctx, "testdata/duplicates.yaml")
		require.ErrorIs(t, err, goserdes.ErrDuplicate)
		assert.Contains(t, err.Error(), "duplicates.yaml")
	})
}

func TestEngine_IssuePaths(t *testing.T) {
	s := newShop()
	e := newEngine(t, s)
	_, err := e.GenerateFromFile(context.Background(), "testdata/invalid_age.yaml")
	iss, ok := goserdes.AsIssues(err)
	require.True(t, ok, "got %v", err)
	require.Len(t, iss, 1)
	assert.Equal(t, "/customers/0/age", iss[0].Path)
	assert.Equal(t, goserdes.CodeInvalidType, iss[0].Code)
	assert.Equal(t, 1, e.Store().Len("ProductModel"), "products are created before customers")
}

func TestEngine_IgnoresUnknownKeywords(t *testing.T) {
	s := newShop()
	e := newEngine(t, s)
	sum, err := e.GenerateFromMapping(context.Background(), map[string]any{
		"version":  2,
		"products": map[string]any{"prod_id": "p1", "name": "Laptop", "category": "electronics"},
	})
	require.NoError(t, err)
	assert.Equal(t, goserdes.Summary{"ProductModel": {Loaded: 1, Added: 1}}, sum)
}

func TestEngine_Patches(t *testing.T) {
	ctx := context.Background()

	t.Run("json patch", func(t *testing.T) {
		s := newShop()
		e := newEngine(t, s)
		_, err := e.GenerateFromFile(ctx, "testdata/customers.yaml",
			goserdes.Patch(`[{"op": "replace", "path": "/customers/0/age", "value": 17}]`))
		iss, ok := goserdes.AsIssues(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "/customers/0/age", iss[0].Path)
		assert.Equal(t, goserdes.CodeTooSmall, iss[0].Code)
	})

	t.Run("merge patch", func(t *testing.T) {
		s := newShop()
		e := newEngine(t, s)
		patch, err := os.ReadFile("testdata/merge_patch.json")
		require.NoError(t, err)
		_, err = e.GenerateFromFile(ctx, "testdata/customers.yaml", goserdes.Patch(patch))
		require.NoError(t, err)
		all, err := s.customer.All(e.Store())
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Eve", all[0].Name)
		assert.Equal(t, []string{"p3"}, prodIDs(all[0].FlaggedInterests))
	})

	t.Run("invalid patch", func(t *testing.T) {
		e := newEngine(t, newShop())
		_, err := e.GenerateFromFile(ctx, "testdata/customers.yaml", goserdes.Patch(`[{"op": "bogus"}]`))
		require.Error(t, err)
		assert.Zero(t, e.Store().Len("ProductModel"))
	})
}

func TestEngine_ConvertFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "customers.json")
	data, err := os.ReadFile("testdata/customers.json")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o600))

	e := goserdes.New(goserdes.WithCatalog(goserdes.NewCatalog()))
	for _, to := range []string{"yaml", "toml"} {
		t.Run(to, func(t *testing.T) {
			text, err := e.ConvertFile(ctx, src, to, goserdes.ConvertOpt{})
			require.NoError(t, err)
			dst := filepath.Join(dir, "customers."+to)
			written, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, text, string(written))

			want, err := format.Default.LoadFile(src)
			require.NoError(t, err)
			got, err := format.Default.LoadFile(dst)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("converted document differs (-src +dst):\n%s", diff)
			}
		})
	}

	t.Run("dry run", func(t *testing.T) {
		text, err := e.ConvertFile(ctx, src, "yaml", goserdes.ConvertOpt{DryRun: true, DstFile: filepath.Join(dir, "never.yaml")})
		require.NoError(t, err)
		assert.Contains(t, text, "prod_id: p1")
		assert.NoFileExists(t, filepath.Join(dir, "never.yaml"))
	})

	t.Run("ini cannot hold lists", func(t *testing.T) {
		_, err := e.ConvertFile(ctx, src, "ini", goserdes.ConvertOpt{})
		var de *format.DumperError
		require.ErrorAs(t, err, &de)
		assert.NoFileExists(t, filepath.Join(dir, "customers.ini"))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := e.ConvertFile(ctx, src, "xml", goserdes.ConvertOpt{})
		require.ErrorIs(t, err, format.ErrDumperNotFound)
	})
}

func TestConvertDestination(t *testing.T) {
	assert.Equal(t, "a/b/data.toml", goserdes.ConvertDestination("a/b/data.json", "toml"))
	assert.Equal(t, "data.yaml", goserdes.ConvertDestination("data", ".YAML"))
}

func TestEngine_Render(t *testing.T) {
	ctx := context.Background()
	s := newShop()
	e := newEngine(t, s)
	_, err := e.GenerateFromFile(ctx, "testdata/customers.yaml")
	require.NoError(t, err)

	alice, err := e.Store().Get("CustomerModel", goserdes.Query{"name": "Alice"})
	require.NoError(t, err)
	out, err := e.Render(ctx, alice, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice <alice@example.com>\nOffers for you:\n- Laptop (electronics)\n- Phone (electronics)\n", out)

	bob, err := e.Store().Get("CustomerModel", goserdes.Query{"name": "Bob"})
	require.NoError(t, err)
	out, err = e.Render(ctx, bob, map[string]any{"signature": "The Shop"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob <bob@example.com>\nNo offers - The Shop.\n", out)

	laptop, err := e.Store().Get("ProductModel", goserdes.Query{"prod_id": "p1"})
	require.NoError(t, err)
	_, err = e.Render(ctx, laptop, nil)
	require.ErrorIs(t, err, goserdes.ErrNotRenderable)
}

func TestEngine_RenderMissingTemplate(t *testing.T) {
	ctx := context.Background()
	s := newShop()
	e := goserdes.New(goserdes.WithCatalog(s.catalog), goserdes.WithRenderer(render.NewDir(t.TempDir())))
	_, err := e.GenerateFromFile(ctx, "testdata/customers.yaml")
	require.NoError(t, err)
	rec, err := e.Store().Get("CustomerModel", goserdes.Query{"name": "Alice"})
	require.NoError(t, err)
	_, err = e.Render(ctx, rec, nil)
	require.ErrorIs(t, err, render.ErrTemplateNotFound)
}

func TestEngine_DumpAndDocument(t *testing.T) {
	ctx := context.Background()
	e := manifestEngine(t)
	_, err := e.GenerateFromFile(ctx, "testdata/customers.toml")
	require.NoError(t, err)

	doc := e.Document()
	require.Contains(t, doc, "products")
	require.Contains(t, doc, "customers")
	assert.Len(t, doc["products"], 3)

	text, err := e.Dump("yaml")
	require.NoError(t, err)
	dumped, err := format.YAML.Load(strings.NewReader(text))
	require.NoError(t, err)
	assert.Len(t, dumped["CustomerModel"], 2)
	assert.Len(t, dumped["ProductModel"], 3)
}

func TestEngine_RoundTrip(t *testing.T) {
	for _, name := range []string{"customers.json", "customers.yaml", "customers.toml"} {
		t.Run(name, func(t *testing.T) {
			e := manifestEngine(t)
			rep, err := e.RoundTrip(context.Background(), filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.True(t, rep.Equal, rep.Diff)
			assert.Empty(t, rep.Diff)
		})
	}
}

func TestEngine_RoundTripReportsDiff(t *testing.T) {
	// The Go kinds replace category names with product records, so the
	// re-serialized customers differ from the source.
	e := newEngine(t, newShop())
	rep, err := e.RoundTrip(context.Background(), "testdata/customers.yaml")
	require.NoError(t, err)
	assert.False(t, rep.Equal)
	assert.Equal(t, "yaml", rep.Format)
	assert.Contains(t, rep.Diff, "+")
	assert.Contains(t, rep.Diff, "-")
}

func TestEngine_RoundTripINI(t *testing.T) {
	m, err := manifest.Load(strings.NewReader(`
kinds:
  - name: WebServer
    directive: web
    key: [host]
    fields:
      host: {type: string, required: true}
      port: {type: integer, coerce: true, required: true}
`))
	require.NoError(t, err)
	c := goserdes.NewCatalog()
	require.NoError(t, m.Register(c))
	e := goserdes.New(goserdes.WithCatalog(c))

	path := filepath.Join(t.TempDir(), "web.ini")
	require.NoError(t, os.WriteFile(path, []byte("[web]\nhost = h\nport = 80\n"), 0o644))

	rep, err := e.RoundTrip(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, rep.Equal, rep.Diff)
	assert.Equal(t, "ini", rep.Format)
	assert.Equal(t, map[string]any{
		"web": map[string]any{"host": "h", "port": int64(80)},
	}, e.Document())
}

func TestEngine_DocumentKeepsListShape(t *testing.T) {
	// A keyword loaded as a list stays a list even with a single record.
	e := manifestEngine(t)
	_, err := e.GenerateFromMapping(context.Background(), map[string]any{
		"products": []any{map[string]any{"prod_id": "p1", "name": "Laptop", "category": "electronics"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"prod_id": "p1", "name": "Laptop", "category": "electronics"},
	}, e.Document()["products"])
}
