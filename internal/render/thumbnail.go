// Package render produces notification thumbnail images from template assets.
package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/bobintern/bountybot/internal/domain"
)

const (
	thumbWidth  = 1200
	thumbHeight = 630
)

// ThumbnailRenderer composes a listing thumbnail from a background template
// and a type badge, sized for Telegram photo messages. Rendered files land in
// outputDir keyed by listing id, so repeat renders are cheap overwrites.
type ThumbnailRenderer struct {
	logger    *slog.Logger
	assetsDir string
	outputDir string
}

func NewThumbnailRenderer(logger *slog.Logger, assetsDir, outputDir string) *ThumbnailRenderer {
	return &ThumbnailRenderer{
		logger:    logger.With("component", "render"),
		assetsDir: assetsDir,
		outputDir: outputDir,
	}
}

// RenderListingThumbnail builds the image and returns its file path. A missing
// background template is a hard error so the caller can retry next tick; a
// missing type badge degrades to the plain background.
func (r *ThumbnailRenderer) RenderListingThumbnail(ctx context.Context, listing *domain.Listing) (string, error) {
	background, err := imaging.Open(filepath.Join(r.assetsDir, "background.png"))
	if err != nil {
		return "", fmt.Errorf("open background template: %w", err)
	}

	canvas := imaging.Fill(background, thumbWidth, thumbHeight, imaging.Center, imaging.Lanczos)

	badgePath := filepath.Join(r.assetsDir, fmt.Sprintf("tag_%s.png", listing.Type))
	if badge, err := imaging.Open(badgePath); err == nil {
		canvas = imaging.Overlay(canvas, badge, image.Pt(40, 40), 1.0)
	} else {
		r.logger.WarnContext(ctx, "type badge missing, rendering without it", "path", badgePath, "error", err)
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create render output dir: %w", err)
	}

	outPath := filepath.Join(r.outputDir, fmt.Sprintf("%s.png", listing.ID))
	if err := imaging.Save(canvas, outPath); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}

	r.logger.DebugContext(ctx, "thumbnail rendered", "listing_id", listing.ID, "path", outPath)
	return outPath, nil
}
