package repository

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarouselAdListActiveNewestFirst(t *testing.T) {
	truncate(t, "carousel_ads")
	repo := NewCarouselAdRepository(testDB)
	ctx := context.Background()

	older := &domain.CarouselAd{Title: "Older", Image: "ads/older.jpg", Link: "/", IsActive: true}
	hidden := &domain.CarouselAd{Title: "Hidden", Image: "ads/hidden.jpg", Link: "/", IsActive: false}
	noImage := &domain.CarouselAd{Title: "No image", Link: "/", IsActive: true}
	newer := &domain.CarouselAd{Title: "Newer", Image: "ads/newer.jpg", Link: "/sale", IsActive: true}
	for _, ad := range []*domain.CarouselAd{older, hidden, noImage, newer} {
		require.NoError(t, repo.Create(ctx, ad))
	}

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Newer", active[0].Title)
	assert.Equal(t, "Older", active[1].Title)

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCarouselAdUpdateAndDelete(t *testing.T) {
	truncate(t, "carousel_ads")
	repo := NewCarouselAdRepository(testDB)
	ctx := context.Background()

	ad := &domain.CarouselAd{Image: "ads/a.jpg", Link: "/", IsActive: true}
	require.NoError(t, repo.Create(ctx, ad))

	ad.Title = "Festive"
	ad.IsActive = false
	require.NoError(t, repo.Update(ctx, ad))

	found, err := repo.FindByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, "Festive", found.Title)
	assert.False(t, found.IsActive)

	require.NoError(t, repo.Delete(ctx, ad.ID))
	assert.ErrorIs(t, repo.Delete(ctx, ad.ID), ErrCarouselAdNotFound)
	assert.ErrorIs(t, repo.Update(ctx, ad), ErrCarouselAdNotFound)
	_, err = repo.FindByID(ctx, ad.ID)
	assert.ErrorIs(t, err, ErrCarouselAdNotFound)
}
