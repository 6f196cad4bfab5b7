package preprocess

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log"
	"os"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Optimize shrinks an image for model consumption: longest edge capped at
// maxEdge pixels, re-encoded as JPEG at the given quality. Smaller images
// that are already JPEG pass through untouched; everything else gets
// re-encoded so only one format ever reaches the model.
func Optimize(path string, maxEdge, quality int) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("opening image: %w", err)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", "", fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}

	if longest <= maxEdge && format == "jpeg" {
		return path, "image/jpeg", nil
	}

	if longest > maxEdge {
		scale := float64(maxEdge) / float64(longest)
		newW := int(float64(w)*scale + 0.5)
		newH := int(float64(h)*scale + 0.5)
		scaled := image.NewRGBA(image.Rect(0, 0, newW, newH))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)
		log.Printf("preprocess.Optimize: %dx%d -> %dx%d", w, h, newW, newH)
		img = scaled
	}

	outPath := path + ".opt.jpg"
	out, err := os.Create(outPath)
	if err != nil {
		return "", "", fmt.Errorf("creating output: %w", err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: quality}); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", "", fmt.Errorf("encoding output: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", "", err
	}
	return outPath, "image/jpeg", nil
}
