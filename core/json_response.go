package core

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wavsocial/wavscan/pkg/validator"
)

// JSONResponse is the envelope for every API response.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries the error code, message and optional per-field detail.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// RespondJSON writes body as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RespondOK writes a 200 with data wrapped in the standard envelope.
func RespondOK(w http.ResponseWriter, data any) {
	RespondJSON(w, http.StatusOK, JSONResponse{Data: data})
}

// RespondCreated writes a 201 with data wrapped in the standard envelope.
func RespondCreated(w http.ResponseWriter, data any) {
	RespondJSON(w, http.StatusCreated, JSONResponse{Data: data})
}

// RespondError shapes err into the envelope. ValidationErrors become a 400
// with per-field details, HTTPError uses its own code, anything else is a
// generic 500 so internals never leak.
func RespondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		RespondJSON(w, http.StatusBadRequest, JSONResponse{Error: &ErrorDetail{
			Code:    "validation_error",
			Message: "validation failed",
			Details: verrs.Fields(),
		}})
		return
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		RespondJSON(w, httpErr.Code, JSONResponse{Error: &ErrorDetail{
			Code:    httpErr.Key,
			Message: httpErr.Message,
		}})
		return
	}

	RespondJSON(w, http.StatusInternalServerError, JSONResponse{Error: &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: ErrInternalServerError.Message,
	}})
}

// DecodeJSON reads a JSON request body into v, bounding the body size.
func DecodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return ErrBadRequest.WithMessage("invalid request body")
	}
	return nil
}
