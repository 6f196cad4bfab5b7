package preprocess

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
)

func testCropConfig() config.CropConfig {
	return config.CropConfig{
		Policy:        "auto",
		PythonBin:     "python3",
		ScriptPath:    "scripts/document_crop.py",
		ProbeTTL:      time.Hour,
		MaxPDFPages:   10,
		PDFDPI:        150,
		OptimizeEdge:  1024,
		OptimizeQual:  60,
		FlattenQual:   85,
		TrimThreshold: 0.5,
	}
}

// documentOnWhite draws a dark rectangle centered on a white canvas.
func documentOnWhite(w, h, border int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= border && x < w-border && y >= border && y < h-border {
				img.Set(x, y, color.RGBA{40, 40, 40, 255})
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func writeJPEG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	require.NoError(t, f.Close())
	return path
}

func TestThresholdBackend_TrimsWhiteMargins(t *testing.T) {
	path := writeJPEG(t, documentOnWhite(400, 300, 60))
	backend := NewThresholdBackend(0.5)

	out, err := backend.Crop(context.Background(), path)
	require.NoError(t, err)
	defer os.Remove(out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	cropped, _, err := image.Decode(f)
	require.NoError(t, err)

	// 60px border trimmed down to the 10px margin, within jpeg tolerance.
	assert.InDelta(t, 300, cropped.Bounds().Dx(), 15)
	assert.InDelta(t, 200, cropped.Bounds().Dy(), 15)

	// Input untouched.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestThresholdBackend_RejectsBlankImage(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			blank.Set(x, y, color.White)
		}
	}
	path := writeJPEG(t, blank)

	_, err := NewThresholdBackend(0.5).Crop(context.Background(), path)
	assert.Error(t, err)
}

func TestThresholdBackend_SkipsMarginlessImage(t *testing.T) {
	path := writeJPEG(t, documentOnWhite(200, 200, 2))
	_, err := NewThresholdBackend(0.5).Crop(context.Background(), path)
	assert.Error(t, err, "near-full-frame content should not be re-encoded")
}

func TestOpenCVBackend_ProbeCaching(t *testing.T) {
	probes := 0
	backend := NewOpenCVBackend(testCropConfig())
	backend.SetRunner(func(ctx context.Context, name string, args ...string) error {
		probes++
		return errors.New("no cv2")
	})
	now := time.Now()
	backend.now = func() time.Time { return now }

	ctx := context.Background()
	assert.False(t, backend.Available(ctx))
	assert.False(t, backend.Available(ctx))
	assert.Equal(t, 1, probes, "verdict must be cached within the TTL")

	now = now.Add(2 * time.Hour)
	assert.False(t, backend.Available(ctx))
	assert.Equal(t, 2, probes, "expired TTL must re-probe")
}

func TestOpenCVBackend_CropWritesOutput(t *testing.T) {
	path := writeJPEG(t, documentOnWhite(100, 100, 10))
	backend := NewOpenCVBackend(testCropConfig())
	backend.SetRunner(func(ctx context.Context, name string, args ...string) error {
		if len(args) == 2 && args[0] == "-c" {
			return nil // probe
		}
		// Script invocation: python3 script in out
		require.Len(t, args, 3)
		return os.WriteFile(args[2], []byte("jpeg bytes"), 0o644)
	})

	out, err := backend.Crop(context.Background(), path)
	require.NoError(t, err)
	defer os.Remove(out)
	assert.Equal(t, path+".crop.jpg", out)
}

func TestOpenCVBackend_CropFailureCleansUp(t *testing.T) {
	path := writeJPEG(t, documentOnWhite(100, 100, 10))
	backend := NewOpenCVBackend(testCropConfig())
	backend.SetRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("no document contour found")
	})

	_, err := backend.Crop(context.Background(), path)
	require.Error(t, err)
	_, statErr := os.Stat(path + ".crop.jpg")
	assert.True(t, os.IsNotExist(statErr))
}

// stubBackend lets cascade tests script availability and outcomes.
type stubBackend struct {
	name      domain.CropMethod
	available bool
	out       string
	err       error
	calls     int
}

func (s *stubBackend) Name() domain.CropMethod            { return s.name }
func (s *stubBackend) Available(ctx context.Context) bool { return s.available }

func (s *stubBackend) Crop(ctx context.Context, path string) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestCropper_CascadeFallsThrough(t *testing.T) {
	opencv := &stubBackend{name: domain.CropMethodOpenCV, available: true, err: errors.New("boom")}
	trim := &stubBackend{name: domain.CropMethodGD, available: true, out: "/tmp/trimmed.jpg"}
	c := &Cropper{policy: domain.CropPolicyAuto, backends: []Backend{opencv, trim}}

	out, method := c.Crop(context.Background(), "/tmp/in.jpg")
	assert.Equal(t, "/tmp/trimmed.jpg", out)
	assert.Equal(t, domain.CropMethodGD, method)
	assert.Equal(t, 1, opencv.calls)
}

func TestCropper_AllFailReturnsOriginal(t *testing.T) {
	opencv := &stubBackend{name: domain.CropMethodOpenCV, available: false}
	trim := &stubBackend{name: domain.CropMethodGD, available: true, err: errors.New("blank")}
	c := &Cropper{policy: domain.CropPolicyAuto, backends: []Backend{opencv, trim}}

	out, method := c.Crop(context.Background(), "/tmp/in.jpg")
	assert.Equal(t, "/tmp/in.jpg", out)
	assert.Equal(t, domain.CropMethodNone, method)
	assert.Zero(t, opencv.calls, "unavailable backend must not run")
}

func TestNewCropper_PolicyWiring(t *testing.T) {
	cases := []struct {
		policy string
		count  int
	}{
		{"auto", 2},
		{"opencv_only", 1},
		{"gd_only", 1},
		{"disabled", 0},
	}
	for _, tc := range cases {
		cfg := testCropConfig()
		cfg.Policy = tc.policy
		c := NewCropper(cfg)
		assert.Len(t, c.backends, tc.count, tc.policy)
	}
}

func TestOptimize_DownscalesLargeImage(t *testing.T) {
	path := writeJPEG(t, documentOnWhite(2048, 1536, 100))

	out, mime, err := Optimize(path, 1024, 60)
	require.NoError(t, err)
	defer os.Remove(out)

	assert.Equal(t, "image/jpeg", mime)
	assert.NotEqual(t, path, out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 1024, img.Bounds().Dx())
	assert.Equal(t, 768, img.Bounds().Dy())
}

func TestOptimize_SmallJPEGPassesThrough(t *testing.T) {
	path := writeJPEG(t, documentOnWhite(800, 600, 50))
	out, mime, err := Optimize(path, 1024, 60)
	require.NoError(t, err)
	assert.Equal(t, path, out)
	assert.Equal(t, "image/jpeg", mime)
}

func TestOptimize_ConvertsPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, documentOnWhite(800, 600, 50)))
	require.NoError(t, f.Close())

	out, mime, err := Optimize(path, 1024, 60)
	require.NoError(t, err)
	defer os.Remove(out)
	assert.Equal(t, "image/jpeg", mime)
	assert.NotEqual(t, path, out, "png must be re-encoded even when small enough")
}

func TestPreprocessor_ImagePipeline(t *testing.T) {
	cfg := testCropConfig()
	cfg.Policy = "gd_only"
	p := New(cfg)

	path := writeJPEG(t, documentOnWhite(2000, 1500, 300))
	prepared, err := p.Prepare(context.Background(), path, domain.FileTypeJPG, true)
	require.NoError(t, err)
	defer os.Remove(prepared.Path)
	defer os.Remove(prepared.ArtifactPath)

	assert.Equal(t, domain.CropMethodGD, prepared.CropMethod)
	assert.Equal(t, "image/jpeg", prepared.MIME)

	// The artifact is the cropped image at full resolution, distinct from
	// the token-reduced copy the model sees.
	assert.NotEqual(t, path, prepared.ArtifactPath)
	assert.NotEqual(t, prepared.Path, prepared.ArtifactPath)
	assert.Equal(t, "image/jpeg", prepared.ArtifactMIME)

	f, err := os.Open(prepared.ArtifactPath)
	require.NoError(t, err)
	defer f.Close()
	artifact, _, err := image.Decode(f)
	require.NoError(t, err)
	// 300px border trimmed to a 10px margin; no downscaling applied.
	assert.InDelta(t, 1420, artifact.Bounds().Dx(), 20)
	assert.InDelta(t, 920, artifact.Bounds().Dy(), 20)

	// Original upload survives the pipeline.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestPreprocessor_CropDisabled(t *testing.T) {
	cfg := testCropConfig()
	cfg.Policy = "disabled"
	p := New(cfg)

	path := writeJPEG(t, documentOnWhite(500, 400, 100))
	prepared, err := p.Prepare(context.Background(), path, domain.FileTypeJPG, true)
	require.NoError(t, err)
	assert.Equal(t, domain.CropMethodNone, prepared.CropMethod)
	assert.Equal(t, path, prepared.ArtifactPath, "no crop means the original is the artifact")
	assert.Equal(t, "image/jpeg", prepared.ArtifactMIME)
}

func TestEncodeBase64(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	b64, err := EncodeBase64(path)
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", b64)
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "/tmp/doc.jpg", replaceExt("/tmp/doc.pdf", ".jpg"))
	assert.Equal(t, "/tmp/archive.v2/doc.jpg", replaceExt("/tmp/archive.v2/doc", ".jpg"))
}

func TestFlattenPDF_MissingFileIsFatal(t *testing.T) {
	_, err := FlattenPDF(filepath.Join(t.TempDir(), "missing.pdf"), 150, 10, 85)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPDFConversion)
}
