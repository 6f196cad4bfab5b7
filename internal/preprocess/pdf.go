package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/guilamu/gravity-extract/internal/domain"
)

// FlattenPDF renders a PDF into a single JPEG: pages rendered at the
// configured DPI, stacked vertically, each centered horizontally on a white
// canvas. At most maxPages pages are included. The source PDF is deleted
// only after the JPEG is fully written; any failure leaves it in place and
// is fatal to the pipeline, never a fall-through to sending raw PDF bytes
// to a vision model.
func FlattenPDF(path string, dpi float64, maxPages, quality int) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening document: %v", domain.ErrPDFConversion, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return "", fmt.Errorf("%w: document has no pages", domain.ErrPDFConversion)
	}
	if pageCount > maxPages {
		log.Printf("preprocess.FlattenPDF: %d pages, rendering first %d", pageCount, maxPages)
		pageCount = maxPages
	}

	pages := make([]image.Image, 0, pageCount)
	maxWidth, totalHeight := 0, 0
	for i := 0; i < pageCount; i++ {
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return "", fmt.Errorf("%w: rendering page %d: %v", domain.ErrPDFConversion, i+1, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() > maxWidth {
			maxWidth = bounds.Dx()
		}
		totalHeight += bounds.Dy()
		pages = append(pages, img)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, maxWidth, totalHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	y := 0
	for _, page := range pages {
		bounds := page.Bounds()
		x := (maxWidth - bounds.Dx()) / 2
		dest := image.Rect(x, y, x+bounds.Dx(), y+bounds.Dy())
		draw.Draw(canvas, dest, page, bounds.Min, draw.Src)
		y += bounds.Dy()
	}

	outPath := replaceExt(path, ".jpg")
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("%w: creating output: %v", domain.ErrPDFConversion, err)
	}
	if err := jpeg.Encode(out, canvas, &jpeg.Options{Quality: quality}); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("%w: encoding jpeg: %v", domain.ErrPDFConversion, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("%w: writing output: %v", domain.ErrPDFConversion, err)
	}

	// The conversion fully succeeded; the original is no longer needed.
	if err := os.Remove(path); err != nil {
		log.Printf("preprocess.FlattenPDF: could not remove source pdf %s: %v", path, err)
	}

	log.Printf("preprocess.FlattenPDF: %d page(s) flattened to %dx%d", len(pages), maxWidth, totalHeight)
	return outPath, nil
}

func replaceExt(path, ext string) string {
	if idx := strings.LastIndex(path, "."); idx > strings.LastIndex(path, "/") {
		return path[:idx] + ext
	}
	return path + ext
}
