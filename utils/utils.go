package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"fancystore/errs"
)

// maxJSONBody caps request bodies; product images travel as data URIs.
const maxJSONBody = 12 << 20

// DecodeJSON decodes the request body into dst. Malformed input is a
// validation error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Validation("Request body is required")
		}
		return errs.Validation("Invalid JSON payload")
	}
	return nil
}
