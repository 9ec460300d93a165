package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

type WebError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *WebError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

func (e *WebError) Unwrap() error {
	return e.Cause
}

func NewWebError(statusCode int, message string, cause error) *WebError {
	return &WebError{
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

type errorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"message"`
}

func NewErrorResponse(errType string, message string) *errorResponse {
	return &errorResponse{
		Type: errType,
		Msg:  message,
	}
}

// statusFor maps domain errors onto HTTP status codes. Unmapped errors get
// fallback.
func statusFor(err error, fallback int) int {
	var webErr *WebError
	if errors.As(err, &webErr) {
		return webErr.StatusCode
	}

	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrUnknownTicker):
		return http.StatusNotFound
	case errors.Is(err, models.ErrWorldNotSeeded),
		errors.Is(err, models.ErrPatientAlreadyActive),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrNoOpenPosition):
		return http.StatusConflict
	case errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, models.ErrInvalidSpeed),
		errors.Is(err, models.ErrInvalidSeverity),
		errors.Is(err, models.ErrInvalidConfidence),
		errors.Is(err, models.ErrInvalidMemoryType):
		return http.StatusUnprocessableEntity
	}

	return fallback
}

func setResponse(response interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("SetResponse: encode: %w", err)
	}

	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := NewErrorResponse(errType, err.Error())
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		return encodeErr
	}

	return nil
}

// respond writes either the result or the error of a handler.
func respond(op string, result interface{}, err error, w http.ResponseWriter) {
	if err != nil {
		status := statusFor(err, http.StatusInternalServerError)
		if status >= http.StatusInternalServerError {
			log.Errorf("%s: %v", op, err)
		}

		setErrorResponse(op, status, err, w)
		return
	}

	if err := setResponse(result, w); err != nil {
		log.Errorf("%s: failed to set response: %v", op, err)
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return NewWebError(http.StatusBadRequest, "invalid request body", err)
	}

	return nil
}

func decodeQuery(r *http.Request) (*models.ListRequest, error) {
	var req models.ListRequest
	if err := queryDecoder.Decode(&req, r.URL.Query()); err != nil {
		return nil, NewWebError(http.StatusBadRequest, "invalid query", err)
	}

	if req.Limit < 0 {
		return nil, NewWebError(http.StatusBadRequest, "invalid query", fmt.Errorf("limit must not be negative"))
	}

	return &req, nil
}

// validate runs a request's own checks, reporting failures as 422 unless a
// more specific status applies.
func validate(req interface{ Validate() error }) error {
	if err := req.Validate(); err != nil {
		return NewWebError(statusFor(err, http.StatusUnprocessableEntity), "invalid request", err)
	}

	return nil
}
