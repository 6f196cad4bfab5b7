package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/port"
	"github.com/guilamu/gravity-extract/internal/preprocess"
)

// UploadService receives a document, runs preprocessing, and archives the
// resulting artifact (cropped, full quality) to object storage. Archival is
// best-effort: a storage outage never blocks extraction, the two concerns
// are independent.
type UploadService struct {
	storage port.ObjectStorage
	cfg     config.S3Config
	pre     *preprocess.Preprocessor
}

// NewUploadService creates an UploadService. storage may be nil, which
// disables archival entirely.
func NewUploadService(storage port.ObjectStorage, cfg config.S3Config, pre *preprocess.Preprocessor) *UploadService {
	return &UploadService{storage: storage, cfg: cfg, pre: pre}
}

// UploadResult is the outcome of one document upload.
type UploadResult struct {
	UploadID    string            `json:"upload_id"`
	StorageKey  string            `json:"storage_key,omitempty"`
	Location    string            `json:"location,omitempty"`
	ImageBase64 string            `json:"image_base64"`
	ImageMIME   string            `json:"image_mime"`
	CropMethod  domain.CropMethod `json:"crop_method"`
}

// HandleUpload validates, preprocesses, and archives one uploaded
// document. filename drives type detection, with the declared content type
// as fallback; size is the declared length in bytes. The archived bytes
// are the preprocessed artifact (cropped when a crop applied, full
// quality), not the token-reduced copy sent to the model.
func (s *UploadService) HandleUpload(ctx context.Context, r io.Reader, filename, contentType string, size int64, autoCrop bool) (*UploadResult, error) {
	fileType, err := resolveFileType(filename, contentType)
	if err != nil {
		return nil, err
	}
	if maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024; maxBytes > 0 && size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d MB)", domain.ErrFileTooLarge, size, s.cfg.MaxFileSizeMB)
	}

	uploadID := uuid.New().String()

	tempDir, err := os.MkdirTemp("", "gravity-extract-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempPath := filepath.Join(tempDir, uploadID+"."+string(fileType))
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	written, err := io.Copy(tempFile, r)
	if cerr := tempFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("writing upload: %w", err)
	}
	if maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024; maxBytes > 0 && written > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d MB)", domain.ErrFileTooLarge, written, s.cfg.MaxFileSizeMB)
	}

	prepared, err := s.pre.Prepare(ctx, tempPath, fileType, autoCrop)
	if err != nil {
		return nil, err
	}
	b64, err := preprocess.EncodeBase64(prepared.Path)
	if err != nil {
		return nil, fmt.Errorf("encoding prepared image: %w", err)
	}

	result := &UploadResult{
		UploadID:    uploadID,
		ImageBase64: b64,
		ImageMIME:   prepared.MIME,
		CropMethod:  prepared.CropMethod,
	}
	s.archive(ctx, prepared.ArtifactPath, prepared.ArtifactMIME, uploadID, result)
	return result, nil
}

// archive stores the artifact bytes under uploads/<id>.<ext>. Failures are
// logged and swallowed.
func (s *UploadService) archive(ctx context.Context, path, mime, uploadID string, result *UploadResult) {
	if s.storage == nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		log.Printf("service.UploadService.archive: reopening artifact: %v", err)
		return
	}
	defer f.Close()

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	key := fmt.Sprintf("uploads/%s.%s", uploadID, ext)
	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        f,
		ContentType: mime,
	})
	if err != nil {
		log.Printf("service.UploadService.archive: %v (extraction continues)", err)
		return
	}
	result.StorageKey = key
	result.Location = out.Location
}

// PresignedURL returns a temporary download link for an archived upload.
func (s *UploadService) PresignedURL(ctx context.Context, key string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	return s.storage.GetPresignedURL(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry)
}

// DeleteUpload removes an archived artifact from object storage.
func (s *UploadService) DeleteUpload(ctx context.Context, key string) error {
	if s.storage == nil {
		return fmt.Errorf("object storage is not configured")
	}
	return s.storage.Delete(ctx, s.cfg.Bucket, key)
}

// resolveFileType detects the upload type from the filename extension,
// falling back to the declared multipart content type when the extension
// says nothing.
func resolveFileType(filename, contentType string) (domain.FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if fileType, ok := domain.AllowedExtensions[ext]; ok {
		return fileType, nil
	}
	if fileType, ok := domain.AllowedContentTypes[strings.ToLower(contentType)]; ok {
		return fileType, nil
	}
	return "", fmt.Errorf("%w: .%s", domain.ErrUnsupportedFileType, ext)
}
