package render

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/platform/logger"
)

func writeTestAssets(t *testing.T, dir string, withBadge bool) {
	t.Helper()
	bg := imaging.New(1600, 900, color.NRGBA{R: 20, G: 20, B: 40, A: 255})
	require.NoError(t, imaging.Save(bg, filepath.Join(dir, "background.png")))
	if withBadge {
		badge := imaging.New(200, 80, color.NRGBA{R: 240, G: 180, B: 0, A: 255})
		require.NoError(t, imaging.Save(badge, filepath.Join(dir, "tag_bounty.png")))
	}
}

func TestRenderListingThumbnail(t *testing.T) {
	assets := t.TempDir()
	out := t.TempDir()
	writeTestAssets(t, assets, true)

	r := NewThumbnailRenderer(logger.New("error"), assets, out)
	path, err := r.RenderListingThumbnail(context.Background(), &domain.Listing{ID: "l1", Type: domain.ListingTypeBounty})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "l1.png"), path)

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, thumbWidth, img.Bounds().Dx())
	assert.Equal(t, thumbHeight, img.Bounds().Dy())
}

func TestRenderListingThumbnail_MissingBadgeDegrades(t *testing.T) {
	assets := t.TempDir()
	out := t.TempDir()
	writeTestAssets(t, assets, false)

	r := NewThumbnailRenderer(logger.New("error"), assets, out)
	path, err := r.RenderListingThumbnail(context.Background(), &domain.Listing{ID: "l2", Type: domain.ListingTypeProject})

	require.NoError(t, err)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestRenderListingThumbnail_MissingBackgroundFails(t *testing.T) {
	r := NewThumbnailRenderer(logger.New("error"), t.TempDir(), t.TempDir())
	_, err := r.RenderListingThumbnail(context.Background(), &domain.Listing{ID: "l3", Type: domain.ListingTypeBounty})
	assert.Error(t, err)
}
