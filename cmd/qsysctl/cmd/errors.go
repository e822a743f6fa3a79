package cmd

import (
	"errors"
	"fmt"

	"github.com/quatton/qsys/pkg/qsdk/qerr"
)

// errInBand marks a request that succeeded at the HTTP level but carried an
// error record in its body. The response has already been printed.
var errInBand = errors.New("the server reported an error")

// explainError turns errors from the SDK into user-facing guidance.
func explainError(err error) string {
	switch {
	case errors.Is(err, errInBand):
		return fmt.Sprintf("error: %v", err)
	case qerr.IsCode(err, qerr.CodeUnauthorized):
		return fmt.Sprintf("authentication required: run 'qsysctl auth login' (%v)", err)
	case qerr.IsCode(err, qerr.CodeExpiredToken):
		return fmt.Sprintf("bearer token expired: update 'token' in your config (%v)", err)
	case qerr.IsCode(err, qerr.CodeTransport):
		return fmt.Sprintf("could not reach the server: check 'baseUrl' or --base-url (%v)", err)
	}

	if e, ok := qerr.As(err); ok && e.Body != nil && e.Body.Name != "" {
		return fmt.Sprintf("error: %s (%s)", e.Message, e.Body.Name)
	}
	return fmt.Sprintf("error: %v", err)
}
