package crm

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkErrorMessage is reported when the CRM could not be reached at all.
const NetworkErrorMessage = "No se pudo conectar con el servidor. Verifica tu conexión a internet."

// ErrNoData is returned when the CRM answers 2xx with an empty body.
var ErrNoData = errors.New("crm: empty response")

// APIError is a failed CRM call. Status is zero for transport failures, in
// which case Name is "NetworkError" and Err holds the cause.
type APIError struct {
	Status  int
	Name    string
	Message string
	Details any
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// errorBody is the error shape the CRM returns on non-2xx responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

var statusNames = map[int]string{
	http.StatusBadRequest:          "BadRequest",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "NotFound",
	http.StatusConflict:            "Conflict",
	http.StatusUnprocessableEntity: "ValidationError",
	http.StatusTooManyRequests:     "TooManyRequests",
	http.StatusInternalServerError: "InternalServerError",
	http.StatusBadGateway:          "BadGateway",
	http.StatusServiceUnavailable:  "ServiceUnavailable",
	http.StatusGatewayTimeout:      "GatewayTimeout",
}

// StatusName maps an HTTP status to the error name used when the CRM body
// does not supply one.
func StatusName(status int) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return fmt.Sprintf("HttpError%d", status)
}

func newStatusError(status int, body errorBody) *APIError {
	e := &APIError{
		Status:  status,
		Name:    body.Error,
		Message: body.Message,
		Details: body.Details,
	}
	if e.Name == "" {
		e.Name = StatusName(status)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("Request failed with status code %d", status)
	}
	return e
}

func newNetworkError(err error) *APIError {
	return &APIError{Name: "NetworkError", Message: NetworkErrorMessage, Err: err}
}

// Message returns the human-readable part of err, preferring the CRM's own
// message when err is an *APIError.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
