package schemas

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qsys/pkg/qsdk/qerr"
)

// Error names used by the service.
const (
	ErrNameOneOrMore   = "Skyline.OneOrMoreErrorsOccurred"
	ErrNameJobNotFound = "SystemsManagement.JobNotFound"
)

// ErrorResponse renders failures as {"error": {...}}, the shape clients
// decode into qerr.APIError.
type ErrorResponse struct {
	status int
	Err    *qerr.APIError `json:"error"`
}

func (e *ErrorResponse) Error() string {
	return e.Err.Message
}

func (e *ErrorResponse) GetStatus() int {
	return e.status
}

// NewError replaces huma.NewError so that validation and handler errors share
// one body shape.
func NewError(status int, msg string, errs ...error) huma.StatusError {
	body := &qerr.APIError{
		Name:    "SystemsManagement." + strings.ReplaceAll(http.StatusText(status), " ", ""),
		Code:    status,
		Message: msg,
	}
	for _, err := range errs {
		if err == nil {
			continue
		}
		body.InnerErrors = append(body.InnerErrors, qerr.APIError{Message: err.Error()})
	}
	return &ErrorResponse{status: status, Err: body}
}

// JobsNotFound builds the in-band cancel error listing every unknown pair.
func JobsNotFound(missing []CancelJobRequest) *qerr.APIError {
	inner := make([]qerr.APIError, 0, len(missing))
	for _, m := range missing {
		inner = append(inner, qerr.APIError{
			Name:         ErrNameJobNotFound,
			Code:         http.StatusNotFound,
			Message:      "Job " + m.JID + " targeting system " + m.SystemID + " was not found.",
			ResourceType: "job",
			ResourceID:   m.JID,
			Args:         []string{m.JID, m.SystemID},
		})
	}
	return &qerr.APIError{
		Name:        ErrNameOneOrMore,
		Code:        -251041,
		Message:     "One or more errors occurred. See the contained list for details of each error.",
		InnerErrors: inner,
	}
}
