package filemgr

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeURI(t *testing.T, uri string) image.Image {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("not a jpeg data uri: %.40s", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestProcessImageFitsWithoutEnlarging(t *testing.T) {
	for _, tc := range []struct {
		w, h, wantW, wantH int
	}{
		{1600, 1200, 800, 600},
		{400, 1000, 320, 800},
		{120, 60, 120, 60},
	} {
		uri, err := ProcessImage(bytes.NewReader(pngBytes(t, tc.w, tc.h)))
		if err != nil {
			t.Fatalf("%dx%d: %v", tc.w, tc.h, err)
		}
		b := decodeURI(t, uri).Bounds()
		if b.Dx() != tc.wantW || b.Dy() != tc.wantH {
			t.Errorf("%dx%d -> %dx%d, want %dx%d", tc.w, tc.h, b.Dx(), b.Dy(), tc.wantW, tc.wantH)
		}
	}
}

func TestProcessImageRejectsNonImages(t *testing.T) {
	if _, err := ProcessImage(strings.NewReader("just some text, not a picture")); err == nil || !strings.Contains(err.Error(), "Unsupported image type") {
		t.Fatalf("got %v", err)
	}
	if _, err := ProcessImage(strings.NewReader("")); err == nil {
		t.Fatal("empty input must fail")
	}
}

func TestProcessImageHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	router := httprouter.New()
	router.POST("/process-image", NewHandler(logger).ProcessImage)

	upload := func(field string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, _ := mw.CreateFormFile(field, "photo.png")
		_, _ = fw.Write(data)
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/process-image", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("image", pngBytes(t, 900, 300))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if b := decodeURI(t, resp.Image).Bounds(); b.Dx() != 800 {
		t.Fatalf("width = %d", b.Dx())
	}

	rec = upload("file", pngBytes(t, 10, 10))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "No image file provided") {
		t.Fatalf("missing field: %d %s", rec.Code, rec.Body)
	}
	if rec := upload("image", []byte("%PDF-1.4 not an image")); rec.Code != http.StatusBadRequest {
		t.Fatalf("pdf upload: %d", rec.Code)
	}
}

func TestPhotoMIMEAllowList(t *testing.T) {
	for _, m := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		if !isMIMEAllowed(m, PicPhoto) {
			t.Errorf("%s should be allowed", m)
		}
	}
	for _, m := range []string{"image/svg+xml", "text/plain", "application/pdf"} {
		if isMIMEAllowed(m, PicPhoto) {
			t.Errorf("%s should be rejected", m)
		}
	}
	if len(AllowedMIMEs) != 1 {
		t.Fatalf("only photos are processed, got %v", AllowedMIMEs)
	}
}
