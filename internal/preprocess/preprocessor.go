package preprocess

import (
	"context"
	"encoding/base64"
	"log"
	"os"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
)

// Preprocessor normalizes an uploaded document into the single JPEG the
// model sees: PDFs flattened, documents cropped per policy, everything
// downscaled and recompressed for token economy.
type Preprocessor struct {
	cfg     config.CropConfig
	cropper *Cropper
}

// New creates a Preprocessor.
func New(cfg config.CropConfig) *Preprocessor {
	return &Preprocessor{cfg: cfg, cropper: NewCropper(cfg)}
}

// NewWithCropper creates a Preprocessor with an explicit cropper, for tests.
func NewWithCropper(cfg config.CropConfig, cropper *Cropper) *Preprocessor {
	return &Preprocessor{cfg: cfg, cropper: cropper}
}

// PreparedImage is the outcome of the pipeline: the model-ready image plus
// the archival artifact. Path is the token-reduced copy the model sees;
// ArtifactPath is the cropped-but-not-quality-reduced version that gets
// stored and shown to the user (the original when no crop applied).
type PreparedImage struct {
	Path         string
	MIME         string
	CropMethod   domain.CropMethod
	ArtifactPath string
	ArtifactMIME string
}

// Prepare runs the pipeline on a file on disk. Superseded intermediates
// are removed; the returned Path and ArtifactPath survive. PDF flattening
// failure aborts (raw PDF bytes must never reach the model); crop failure
// does not — the uncropped image continues through.
func (p *Preprocessor) Prepare(ctx context.Context, path string, fileType domain.FileType, autoCrop bool) (*PreparedImage, error) {
	current := path
	artifactMIME := domain.AllowedFileTypes[fileType]

	if fileType == domain.FileTypePDF {
		flattened, err := FlattenPDF(current, p.cfg.PDFDPI, p.cfg.MaxPDFPages, p.cfg.FlattenQual)
		if err != nil {
			return nil, err
		}
		current = flattened
		artifactMIME = "image/jpeg"
	}

	method := domain.CropMethodNone
	if autoCrop {
		cropped, m := p.cropper.Crop(ctx, current)
		if cropped != current {
			removeIntermediate(current, path)
			current = cropped
			method = m
			artifactMIME = "image/jpeg"
		}
	}

	// current is now the archival artifact; the optimized copy exists only
	// for the model and never replaces it.
	optimized, mime, err := Optimize(current, p.cfg.OptimizeEdge, p.cfg.OptimizeQual)
	if err != nil {
		return nil, err
	}

	return &PreparedImage{
		Path:         optimized,
		MIME:         mime,
		CropMethod:   method,
		ArtifactPath: current,
		ArtifactMIME: artifactMIME,
	}, nil
}

// EncodeBase64 reads a prepared image and returns its base64 payload.
func EncodeBase64(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// removeIntermediate deletes a superseded pipeline file, but never the
// caller's original upload.
func removeIntermediate(path, original string) {
	if path == original {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("preprocess: could not remove intermediate %s: %v", path, err)
	}
}
