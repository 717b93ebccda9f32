package filemgr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fancystore/errs"
	"fancystore/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

// ProcessImage sniffs, decodes, fits and enhances an uploaded picture and
// returns it as a JPEG data URI.
func ProcessImage(r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return "", errs.Validation("No image file provided")
		}
		return "", fmt.Errorf("read header: %w", err)
	}
	head = head[:n]

	mimeType := http.DetectContentType(head)
	if !isMIMEAllowed(mimeType, PicPhoto) {
		return "", &errs.Error{Kind: errs.KindValidation, Msg: "Unsupported image type", Err: fmt.Errorf("%w: %s", ErrInvalidMIME, mimeType)}
	}

	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), MaxUploadSize+1)
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(raw) > MaxUploadSize {
		return "", &errs.Error{Kind: errs.KindValidation, Msg: "Image exceeds 10MB limit", Err: ErrFileTooLarge}
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", errs.Internal("Failed to process image", err)
	}
	img = imaging.Fit(img, FitWidth, FitHeight, imaging.Lanczos)
	img = imaging.AdjustBrightness(img, Brightness)
	img = imaging.AdjustSaturation(img, Saturation)

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return "", errs.Internal("Failed to process image", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

type Handler struct {
	logger logrus.FieldLogger
}

func NewHandler(logger logrus.FieldLogger) *Handler {
	return &Handler{logger: logger}
}

// ProcessImage handles POST /process-image
func (h *Handler) ProcessImage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			utils.RespondWithError(w, http.StatusBadRequest, "Image exceeds 10MB limit")
			return
		}
		utils.RespondWithError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()
	if header.Size > MaxUploadSize {
		utils.RespondWithError(w, http.StatusBadRequest, "Image exceeds 10MB limit")
		return
	}

	uri, err := ProcessImage(file)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err, "Failed to process image")
		return
	}
	h.logger.WithFields(logrus.Fields{"filename": header.Filename, "size": header.Size}).Debug("image processed")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"image": uri})
}
