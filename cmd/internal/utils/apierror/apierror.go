package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the error surface services return to routes. Values are
// JSON-marshalable and carry the HTTP status to answer with.
type ErrorResponse interface {
	Code() int
	Error() string
}

type apiError struct {
	StatusCode int    `json:"-"`
	Kind       string `json:"code"`
	Message    string `json:"error"`
}

func (e *apiError) Code() int     { return e.StatusCode }
func (e *apiError) Error() string { return e.Message }

var (
	InternalServerError   = &apiError{http.StatusInternalServerError, "internal_error", "Something went wrong"}
	NotFoundError         = &apiError{http.StatusNotFound, "not_found", "Resource not found"}
	MalformedBodyError    = &apiError{http.StatusBadRequest, "malformed_body", "Could not understand request body"}
	InvalidAuthTokenError = &apiError{http.StatusUnauthorized, "invalid_token", "Invalid or missing auth token"}

	MissingParticipantsError = &apiError{http.StatusUnprocessableEntity, "missing_participants",
		"Select a lead or contact, or add at least one external participant"}
	MeetingNotLinkedError = &apiError{http.StatusConflict, "not_linked",
		"Meeting has no provider link to cancel"}
	SaveInProgressError = &apiError{http.StatusConflict, "save_in_progress",
		"A save for this meeting is already in flight"}
)

func NewSimple(code int, msg string) ErrorResponse {
	return &apiError{StatusCode: code, Kind: "bad_request", Message: msg}
}

func NewMissingParamError(name string) ErrorResponse {
	return &apiError{
		StatusCode: http.StatusBadRequest,
		Kind:       "missing_param",
		Message:    fmt.Sprintf("Missing required parameter %q", name),
	}
}

// FromValidationError flattens validator.v10 field errors into a single
// user-facing message.
func FromValidationError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MalformedBodyError
	}

	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag())
	}
	return &apiError{
		StatusCode: http.StatusUnprocessableEntity,
		Kind:       "validation_error",
		Message:    "Invalid fields: " + strings.Join(fields, ", "),
	}
}

// NewProviderError wraps a failed provider call. No local state was touched.
func NewProviderError(op string, cause error) ErrorResponse {
	return &apiError{
		StatusCode: http.StatusBadGateway,
		Kind:       "provider_error",
		Message:    fmt.Sprintf("Meeting provider %s failed: %v", op, cause),
	}
}

// PartialSyncError reports the one mixed outcome: the provider accepted the
// meeting but the local write failed afterwards. The provider booking is
// real, so callers should offer a retry of the local write rather than
// re-creating the provider meeting.
type PartialSyncError struct {
	apiError
	JoinURL string `json:"join_url,omitempty"`
}

func NewPartialSync(joinURL string, cause error) *PartialSyncError {
	return &PartialSyncError{
		apiError: apiError{
			StatusCode: http.StatusInternalServerError,
			Kind:       "partially_synced",
			Message:    fmt.Sprintf("Provider meeting created but local save failed: %v", cause),
		},
		JoinURL: joinURL,
	}
}

// IsPartialSync reports whether the response is the partial-sync case.
func IsPartialSync(e ErrorResponse) bool {
	_, ok := e.(*PartialSyncError)
	return ok
}
