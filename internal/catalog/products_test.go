package catalog

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/testutil"
)

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

func listPtr(v []string) *[]string { return &v }

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.NewDB(t), 4)
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	rings := testutil.SeedCategory(t, svc.DB(), "Rings")

	p, err := svc.CreateProduct(ctx, ProductInput{
		Name:       "  Solitaire Ring ",
		Brand:      "Aurum",
		Tags:       []string{"ring", " gold ", ""},
		Images:     []string{"https://cdn.example.com/r1.jpg"},
		Price:      1200,
		Discount:   10,
		Quantity:   3,
		CategoryID: rings.ID,
		Rating:     4.5,
	})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Solitaire Ring", p.Name)
	assert.Equal(t, []string{"ring", "gold"}, p.Tags)
	assert.True(t, p.Availability, "availability defaults to true when stock exists")

	stored, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ring", "gold"}, stored.Tags)
	assert.Equal(t, []string{"https://cdn.example.com/r1.jpg"}, stored.Images)
}

func TestCreateProductWithoutStockIsUnavailable(t *testing.T) {
	svc := newTestService(t)
	c := testutil.SeedCategory(t, svc.DB(), "Necklaces")

	p, err := svc.CreateProduct(context.Background(), ProductInput{
		Name: "Pearl Necklace", Price: 300, Quantity: 0, Availability: boolPtr(true), CategoryID: c.ID,
	})
	require.NoError(t, err)
	assert.False(t, p.Availability)
}

func TestCreateProductValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	c := testutil.SeedCategory(t, svc.DB(), "Rings")

	tests := []struct {
		name string
		in   ProductInput
		kind apperr.Kind
		code string
	}{
		{"missing category", ProductInput{Name: "x", CategoryID: 999}, apperr.KindNotFound, "CATEGORY_NOT_FOUND"},
		{"no category", ProductInput{Name: "x"}, apperr.KindValidation, "INVALID_CATEGORY"},
		{"negative price", ProductInput{Name: "x", Price: -1, CategoryID: c.ID}, apperr.KindValidation, "INVALID_PRICE"},
		{"negative quantity", ProductInput{Name: "x", Quantity: -2, CategoryID: c.ID}, apperr.KindValidation, "INVALID_QUANTITY"},
		{"rating above five", ProductInput{Name: "x", Rating: 5.5, CategoryID: c.ID}, apperr.KindValidation, "INVALID_RATING"},
		{"discount above hundred", ProductInput{Name: "x", Discount: 120, CategoryID: c.ID}, apperr.KindValidation, "INVALID_DISCOUNT"},
		{"blank name", ProductInput{Name: "  ", CategoryID: c.ID}, apperr.KindValidation, "INVALID_REQUEST"},
		{
			"too many images",
			ProductInput{Name: "x", CategoryID: c.ID, Images: []string{"a", "b", "c", "d", "e"}},
			apperr.KindValidation, "TOO_MANY_IMAGES",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tt.in)
			require.Error(t, err)
			ae := apperr.As(err)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.code, ae.Code)
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	rings := testutil.SeedCategory(t, svc.DB(), "Rings")
	bands := testutil.SeedCategory(t, svc.DB(), "Bands")
	p := testutil.SeedProduct(t, svc.DB(), domain.Product{
		Name: "Band", Price: 90, Quantity: 4, Availability: true, CategoryID: rings.ID,
	})

	updated, err := svc.UpdateProduct(ctx, p.ID, ProductUpdate{
		Price:      floatPtr(110),
		CategoryID: int64Ptr(bands.ID),
		Images:     listPtr([]string{"a", "b", "c", "d"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 110.0, updated.Price)
	assert.Equal(t, bands.ID, updated.CategoryID)
	assert.Len(t, updated.Images, 4)
	assert.Equal(t, "Band", updated.Name)

	_, err = svc.UpdateProduct(ctx, p.ID, ProductUpdate{Images: listPtr([]string{"a", "b", "c", "d", "e"})})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.UpdateProduct(ctx, p.ID, ProductUpdate{CategoryID: int64Ptr(12345)})
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.UpdateProduct(ctx, 9999, ProductUpdate{Name: strPtr("x")})
	assert.True(t, apperr.IsNotFound(err))

	soldOut, err := svc.UpdateProduct(ctx, p.ID, ProductUpdate{Quantity: intPtr(0)})
	require.NoError(t, err)
	assert.False(t, soldOut.Availability)
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	c := testutil.SeedCategory(t, svc.DB(), "Rings")
	p := testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "Ring", CategoryID: c.ID})

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err := svc.GetProduct(ctx, p.ID)
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(svc.DeleteProduct(ctx, p.ID)))
}

func TestListProductsPagination(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	db := svc.DB()

	// pad ids so the category under test gets id 5
	var target domain.Category
	for i := 1; i <= 5; i++ {
		target = testutil.SeedCategory(t, db, fmt.Sprintf("Category %d", i))
	}
	require.Equal(t, int64(5), target.ID)
	other := testutil.SeedCategory(t, db, "Other")

	for i := 0; i < 25; i++ {
		testutil.SeedProduct(t, db, domain.Product{
			Name: fmt.Sprintf("Item %02d", i), Price: float64(10 + i), Quantity: 1, Availability: true, CategoryID: target.ID,
		})
	}
	for i := 0; i < 7; i++ {
		testutil.SeedProduct(t, db, domain.Product{Name: fmt.Sprintf("Other %d", i), CategoryID: other.ID})
	}

	page, err := svc.ListProducts(ctx, ProductFilter{CategoryID: int64Ptr(5), Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, domain.Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3, HasNext: true, HasPrev: true}, page.Pagination)
	assert.Len(t, page.Items, 10)
	for _, p := range page.Items {
		assert.Equal(t, int64(5), p.CategoryID)
	}

	last, err := svc.ListProducts(ctx, ProductFilter{CategoryID: int64Ptr(5), Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.Pagination.HasNext)
}

func TestListProductsFilters(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	db := svc.DB()
	c := testutil.SeedCategory(t, db, "Jewelry")

	testutil.SeedProduct(t, db, domain.Product{Name: "Gold Ring", Brand: "Aurum", Price: 100, Quantity: 2, Availability: true, Tags: []string{"ring", "gold"}, CategoryID: c.ID})
	testutil.SeedProduct(t, db, domain.Product{Name: "Silver Ring", Price: 40, Quantity: 0, Tags: []string{"ring", "silver"}, CategoryID: c.ID})
	testutil.SeedProduct(t, db, domain.Product{Name: "Pearl Earrings", Price: 250, Quantity: 5, Availability: true, Tags: []string{"earring", "pearl"}, Description: "Freshwater pearls", CategoryID: c.ID})
	testutil.SeedProduct(t, db, domain.Product{Name: "Charm", Price: 15, Quantity: 9, Availability: true, Tags: []string{"goldfinch"}, CategoryID: c.ID})

	names := func(f ProductFilter) []string {
		f.Sort, f.Order = "price", "asc"
		page, err := svc.ListProducts(ctx, f)
		require.NoError(t, err)
		out := make([]string, 0, len(page.Items))
		for _, p := range page.Items {
			out = append(out, p.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Silver Ring", "Gold Ring", "Pearl Earrings"}, names(ProductFilter{MinPrice: floatPtr(40), MaxPrice: floatPtr(250)}))
	assert.Equal(t, []string{"Charm", "Gold Ring", "Pearl Earrings"}, names(ProductFilter{Availability: boolPtr(true)}))
	assert.Equal(t, []string{"Silver Ring"}, names(ProductFilter{Availability: boolPtr(false)}))
	// "gold" must not match the "goldfinch" tag
	assert.Equal(t, []string{"Gold Ring", "Pearl Earrings"}, names(ProductFilter{Tags: []string{"gold", "pearl"}}))
	assert.Equal(t, []string{"Pearl Earrings"}, names(ProductFilter{Search: "FRESHWATER"}))
	assert.Equal(t, []string{"Gold Ring"}, names(ProductFilter{Search: "aurum"}))

	_, err := svc.ListProducts(ctx, ProductFilter{MinPrice: floatPtr(50), MaxPrice: floatPtr(10)})
	assert.True(t, apperr.IsValidation(err))
}

func TestListProductsWildcardsAreLiteral(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	db := svc.DB()
	c := testutil.SeedCategory(t, db, "Jewelry")

	testutil.SeedProduct(t, db, domain.Product{Name: "Gold Ring", Price: 100, Quantity: 1, Tags: []string{"gold"}, CategoryID: c.ID})
	testutil.SeedProduct(t, db, domain.Product{Name: "100% Silver", Price: 40, Quantity: 1, Tags: []string{"sterling_925"}, CategoryID: c.ID})
	testutil.SeedProduct(t, db, domain.Product{Name: "Back\\slash Pin", Price: 5, Quantity: 1, Tags: []string{"pin"}, CategoryID: c.ID})

	names := func(f ProductFilter) []string {
		page, err := svc.ListProducts(ctx, f)
		require.NoError(t, err)
		out := make([]string, 0, len(page.Items))
		for _, p := range page.Items {
			out = append(out, p.Name)
		}
		return out
	}

	assert.Equal(t, []string{"100% Silver"}, names(ProductFilter{Search: "%"}))
	assert.Empty(t, names(ProductFilter{Search: "_old"}))
	assert.Equal(t, []string{"Back\\slash Pin"}, names(ProductFilter{Search: "k\\s"}))
	assert.Equal(t, []string{"100% Silver"}, names(ProductFilter{Tags: []string{"sterling_925"}}))
	assert.Empty(t, names(ProductFilter{Tags: []string{"sterling%"}}))
	assert.Empty(t, names(ProductFilter{Tags: []string{"g_ld"}}))
}

func TestUpdateQuantityClearsAvailability(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	c := testutil.SeedCategory(t, svc.DB(), "Rings")
	p := testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "Ring", Quantity: 3, Availability: true, CategoryID: c.ID})

	restocked, err := svc.UpdateQuantity(ctx, p.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, restocked.Quantity)
	assert.True(t, restocked.Availability)

	empty, err := svc.UpdateQuantity(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Quantity)
	assert.False(t, empty.Availability)

	// restocking does not silently republish a product
	again, err := svc.UpdateQuantity(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, again.Availability)

	_, err = svc.UpdateQuantity(ctx, p.ID, -1)
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.UpdateQuantity(ctx, 424242, 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestBulkUpdateAvailability(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	c := testutil.SeedCategory(t, svc.DB(), "Rings")
	a := testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "A", Quantity: 2, CategoryID: c.ID})
	b := testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "B", Quantity: 0, CategoryID: c.ID})

	n, err := svc.BulkUpdateAvailability(ctx, []int64{a.ID, b.ID}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.GetProduct(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Availability, "empty stock stays unavailable")

	n, err = svc.BulkUpdateAvailability(ctx, []int64{a.ID, b.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = svc.BulkUpdateAvailability(ctx, nil, true)
	assert.True(t, apperr.IsValidation(err))
}

func TestLowStock(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	c := testutil.SeedCategory(t, svc.DB(), "Rings")
	testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "few", Quantity: 2, Availability: true, CategoryID: c.ID})
	testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "edge", Quantity: 5, Availability: true, CategoryID: c.ID})
	testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "plenty", Quantity: 50, Availability: true, CategoryID: c.ID})
	testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "hidden", Quantity: 1, Availability: false, CategoryID: c.ID})

	rows, err := svc.LowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "few", rows[0].Name)
	assert.Equal(t, "edge", rows[1].Name)

	_, err = svc.LowStock(ctx, -1)
	assert.True(t, apperr.IsValidation(err))
}

func TestSummaryAndExport(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	c := testutil.SeedCategory(t, svc.DB(), "Rings")
	testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "A", Price: 10, Quantity: 0, CategoryID: c.ID})
	testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "B", Price: 20, Quantity: 3, Availability: true, Tags: []string{"x", "y"}, CategoryID: c.ID})
	testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "C", Price: 60, Quantity: 30, Availability: true, CategoryID: c.ID})

	sum, err := svc.Summary(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Products)
	assert.Equal(t, int64(2), sum.Available)
	assert.Equal(t, int64(1), sum.OutOfStock)
	assert.Equal(t, int64(1), sum.LowStock)
	assert.Equal(t, int64(1), sum.Categories)
	assert.Equal(t, 10.0, sum.PriceMin)
	assert.Equal(t, 60.0, sum.PriceMax)
	assert.Equal(t, 30.0, sum.PriceMean)
	assert.Equal(t, 20.0, sum.PriceMedian)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf))
	out := buf.String()
	assert.Contains(t, out, "id,name,brand,size,category,price")
	assert.Contains(t, out, "Rings")
	assert.Contains(t, out, "x|y")
}
