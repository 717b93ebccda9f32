package filemgr

import "errors"

type PictureType string

const (
	PicPhoto PictureType = "photo"
)

const (
	MaxUploadSize = 10 << 20

	FitWidth    = 800
	FitHeight   = 800
	Brightness  = 10
	Saturation  = 20
	JPEGQuality = 80
)

var (
	AllowedMIMEs = map[PictureType][]string{
		PicPhoto: {"image/jpeg", "image/png", "image/gif", "image/webp"},
	}

	ErrInvalidMIME  = errors.New("invalid MIME type")
	ErrFileTooLarge = errors.New("file size exceeds limit")
)

func isMIMEAllowed(mimeType string, picType PictureType) bool {
	for _, a := range AllowedMIMEs[picType] {
		if mimeType == a {
			return true
		}
	}
	return false
}
