package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeWebP FileType = "webp"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypeJPG:  "image/jpeg",
	FileTypePNG:  "image/png",
	FileTypeWebP: "image/webp",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
	"image/webp":      FileTypeWebP,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"webp": FileTypeWebP,
}

// CropMethod identifies which auto-crop capability is available on this host.
// "opencv" is the precise contour-detection backend, "gd" the simple
// threshold border trim (the name is historical and kept so stored settings
// stay meaningful).
type CropMethod string

const (
	CropMethodOpenCV CropMethod = "opencv"
	CropMethodGD     CropMethod = "gd"
	CropMethodNone   CropMethod = "none"
)

// CropPolicy is the operator-configured restriction on the crop cascade.
type CropPolicy string

const (
	CropPolicyAuto       CropPolicy = "auto"
	CropPolicyGDOnly     CropPolicy = "gd_only"
	CropPolicyOpenCVOnly CropPolicy = "opencv_only"
	CropPolicyDisabled   CropPolicy = "disabled"
)

// DestinationFieldType classifies a destination form field for type-aware
// value injection.
type DestinationFieldType string

const (
	DestinationText   DestinationFieldType = "text"
	DestinationSelect DestinationFieldType = "select"
	DestinationTime   DestinationFieldType = "time"
)
