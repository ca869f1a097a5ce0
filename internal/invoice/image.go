package invoice

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// AcceptExtensions is the value for an HTML file input "accept" attribute.
const AcceptExtensions = ".jpg,.jpeg,.png"

// Upload is a file as received from a presentation surface.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AllowedMimeType reports whether mimeType may be sent to the model.
func AllowedMimeType(mimeType string) bool {
	return allowedMimeTypes[strings.ToLower(mimeType)]
}

// DetectMimeType returns the declared type without parameters, falling back to
// sniffing the bytes when nothing useful was declared.
func DetectMimeType(declared string, data []byte) string {
	mimeType := stripParams(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = stripParams(mimetype.Detect(data).String())
	}
	return strings.ToLower(mimeType)
}

// ImageFromUpload validates an upload and turns it into an Image.
func ImageFromUpload(u Upload) (Image, error) {
	if len(u.Data) == 0 {
		return Image{}, &InputError{Msg: "uploaded file is empty"}
	}

	if name := strings.TrimSpace(u.Filename); name != "" {
		ext := strings.ToLower(filepath.Ext(name))
		if !allowedExtensions[ext] {
			return Image{}, &InputError{Msg: fmt.Sprintf("unsupported file extension %q, use %s", ext, AcceptExtensions)}
		}
	}

	mimeType := DetectMimeType(u.ContentType, u.Data)
	if !AllowedMimeType(mimeType) {
		return Image{}, &InputError{Msg: fmt.Sprintf("unsupported image type %q", mimeType)}
	}

	return Image{MimeType: mimeType, Data: u.Data}, nil
}

func stripParams(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}

func validateImage(img Image) error {
	if len(img.Data) == 0 {
		return &InputError{Msg: "image is empty"}
	}
	if !AllowedMimeType(img.MimeType) {
		return &InputError{Msg: fmt.Sprintf("unsupported image type %q", img.MimeType)}
	}
	return nil
}
