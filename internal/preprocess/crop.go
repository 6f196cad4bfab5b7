package preprocess

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
)

// Backend is one document-cropping implementation. Crop writes a new file
// and returns its path; the input file is never modified.
type Backend interface {
	Name() domain.CropMethod
	Available(ctx context.Context) bool
	Crop(ctx context.Context, path string) (string, error)
}

// Cropper applies the configured crop policy. Cropping is best-effort: a
// backend failure falls through to the next candidate, and exhausting all
// candidates returns the original path untouched with method "none" rather
// than an error.
type Cropper struct {
	policy   domain.CropPolicy
	backends []Backend
}

// NewCropper wires the backend cascade for a policy: "auto" prefers OpenCV
// and falls back to the threshold trim, the *_only policies pin one
// backend, and "disabled" runs nothing.
func NewCropper(cfg config.CropConfig) *Cropper {
	opencv := NewOpenCVBackend(cfg)
	threshold := NewThresholdBackend(cfg.TrimThreshold)

	var backends []Backend
	switch domain.CropPolicy(cfg.Policy) {
	case domain.CropPolicyDisabled:
	case domain.CropPolicyOpenCVOnly:
		backends = []Backend{opencv}
	case domain.CropPolicyGDOnly:
		backends = []Backend{threshold}
	default:
		backends = []Backend{opencv, threshold}
	}
	return &Cropper{policy: domain.CropPolicy(cfg.Policy), backends: backends}
}

// Crop runs the cascade. Returns the path to use (possibly the input) and
// which method produced it.
func (c *Cropper) Crop(ctx context.Context, path string) (string, domain.CropMethod) {
	for _, b := range c.backends {
		if !b.Available(ctx) {
			continue
		}
		cropped, err := b.Crop(ctx, path)
		if err != nil {
			log.Printf("preprocess.Cropper.Crop: %s backend failed: %v", b.Name(), err)
			continue
		}
		return cropped, b.Name()
	}
	return path, domain.CropMethodNone
}

// CommandRunner abstracts subprocess execution so tests can fake the
// python toolchain.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, truncateOutput(out))
	}
	return nil
}

func truncateOutput(out []byte) string {
	const limit = 200
	if len(out) > limit {
		out = out[:limit]
	}
	return string(out)
}

// OpenCVBackend shells out to a python script doing contour-based document
// detection and perspective correction. Availability (python3 with cv2
// importable) is probed once per TTL window; hosts without the toolchain
// pay one probe per hour, not one per upload.
type OpenCVBackend struct {
	pythonBin  string
	scriptPath string
	probeTTL   time.Duration
	run        CommandRunner

	mu          sync.Mutex
	probed      bool
	available   bool
	probeExpiry time.Time
	now         func() time.Time
}

// NewOpenCVBackend creates the OpenCV crop backend.
func NewOpenCVBackend(cfg config.CropConfig) *OpenCVBackend {
	return &OpenCVBackend{
		pythonBin:  cfg.PythonBin,
		scriptPath: cfg.ScriptPath,
		probeTTL:   cfg.ProbeTTL,
		run:        execRunner,
		now:        time.Now,
	}
}

// SetRunner replaces subprocess execution, for tests.
func (b *OpenCVBackend) SetRunner(run CommandRunner) { b.run = run }

func (b *OpenCVBackend) Name() domain.CropMethod { return domain.CropMethodOpenCV }

// Available probes `python3 -c "import cv2"`, caching the verdict for the
// TTL window.
func (b *OpenCVBackend) Available(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.probed && b.now().Before(b.probeExpiry) {
		return b.available
	}

	err := b.run(ctx, b.pythonBin, "-c", "import cv2")
	b.available = err == nil
	b.probed = true
	b.probeExpiry = b.now().Add(b.probeTTL)
	if err != nil {
		log.Printf("preprocess.OpenCVBackend.Available: probe failed, disabled for %s: %v", b.probeTTL, err)
	}
	return b.available
}

// Crop runs the detection script: input path in, cropped jpeg out. A
// non-zero exit (no document contour found, unreadable input) is an error
// the cascade absorbs.
func (b *OpenCVBackend) Crop(ctx context.Context, path string) (string, error) {
	outPath := path + ".crop.jpg"
	if err := b.run(ctx, b.pythonBin, b.scriptPath, path, outPath); err != nil {
		os.Remove(outPath)
		return "", err
	}
	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		os.Remove(outPath)
		return "", fmt.Errorf("crop script produced no output")
	}
	return outPath, nil
}

// ThresholdBackend is the pure-Go fallback: it trims near-white margins by
// bounding-box scan. No perspective correction, but it never needs an
// external toolchain.
type ThresholdBackend struct {
	threshold float64
}

// NewThresholdBackend creates the threshold trim backend. threshold is the
// whiteness tolerance in [0,1]: 0 trims only pure white, higher values trim
// more aggressively.
func NewThresholdBackend(threshold float64) *ThresholdBackend {
	return &ThresholdBackend{threshold: threshold}
}

func (b *ThresholdBackend) Name() domain.CropMethod { return domain.CropMethodGD }

func (b *ThresholdBackend) Available(ctx context.Context) bool { return true }

func (b *ThresholdBackend) Crop(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening image: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	box, ok := contentBounds(img, b.threshold)
	if !ok {
		return "", fmt.Errorf("image is entirely background")
	}

	const margin = 10
	full := img.Bounds()
	box = image.Rect(box.Min.X-margin, box.Min.Y-margin, box.Max.X+margin, box.Max.Y+margin).Intersect(full)

	// A trim that barely shrinks the image is not worth a re-encode.
	if box.Dx()*box.Dy() >= full.Dx()*full.Dy()*98/100 {
		return "", fmt.Errorf("no significant margins to trim")
	}

	cropped := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	for y := 0; y < box.Dy(); y++ {
		for x := 0; x < box.Dx(); x++ {
			cropped.Set(x, y, img.At(box.Min.X+x, box.Min.Y+y))
		}
	}

	outPath := path + ".trim.jpg"
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating output: %w", err)
	}
	if err := jpeg.Encode(out, cropped, &jpeg.Options{Quality: 90}); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("encoding output: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}

// contentBounds finds the bounding box of non-background pixels. A pixel
// counts as content when its luminance drops below white by more than the
// threshold fraction.
func contentBounds(img image.Image, threshold float64) (image.Rectangle, bool) {
	bounds := img.Bounds()
	cutoff := uint32(float64(0xffff) * (1 - threshold*0.5))

	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := (299*r + 587*g + 114*bl) / 1000
			if lum < cutoff {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
