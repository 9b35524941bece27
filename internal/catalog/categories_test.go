package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/testutil"
)

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	c, err := svc.CreateCategory(ctx, CategoryInput{Name: " Rings ", Subcategory: "Engagement"})
	require.NoError(t, err)
	assert.Equal(t, "Rings", c.Name)
	assert.Equal(t, domain.CategoryActive, c.Status)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "Rings"})
	assert.True(t, apperr.IsConflict(err))

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "Bracelets", Status: "archived"})
	assert.True(t, apperr.IsValidation(err))

	updated, err := svc.UpdateCategory(ctx, c.ID, CategoryUpdate{Status: strPtr(domain.CategoryInactive)})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryInactive, updated.Status)
	assert.Equal(t, "Engagement", updated.Subcategory)

	_, err = svc.UpdateCategory(ctx, c.ID, CategoryUpdate{Status: strPtr("gone")})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.UpdateCategory(ctx, 777, CategoryUpdate{Name: strPtr("x")})
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	_, err = svc.GetCategory(ctx, c.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdateCategoryRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	testutil.SeedCategory(t, svc.DB(), "Rings")
	other := testutil.SeedCategory(t, svc.DB(), "Chains")

	_, err := svc.UpdateCategory(ctx, other.ID, CategoryUpdate{Name: strPtr("Rings")})
	assert.True(t, apperr.IsConflict(err))
}

func TestDeleteCategoryInUse(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	c := testutil.SeedCategory(t, svc.DB(), "Rings")
	testutil.SeedProduct(t, svc.DB(), domain.Product{Name: "Ring", CategoryID: c.ID})

	err := svc.DeleteCategory(ctx, c.ID)
	require.Error(t, err)
	ae := apperr.As(err)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, "CATEGORY_IN_USE", ae.Code)
	assert.Equal(t, map[string]interface{}{"product_count": int64(1)}, ae.Details)
}

func TestListCategories(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	testutil.SeedCategory(t, svc.DB(), "Rings")
	testutil.SeedCategory(t, svc.DB(), "Earrings")
	chains := testutil.SeedCategory(t, svc.DB(), "Chains")
	require.NoError(t, svc.DB().Model(&chains).Update("status", domain.CategoryTerminated).Error)

	page, err := svc.ListCategories(ctx, CategoryFilter{Search: "rings"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Earrings", page.Items[0].Name)
	assert.Equal(t, int64(2), page.Pagination.Total)

	terminated, err := svc.ListCategories(ctx, CategoryFilter{Status: domain.CategoryTerminated})
	require.NoError(t, err)
	require.Len(t, terminated.Items, 1)
	assert.Equal(t, "Chains", terminated.Items[0].Name)
}
