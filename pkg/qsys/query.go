package qsys

import (
	"net/url"

	"github.com/oapi-codegen/runtime"
)

// ListJobsParams are the optional filters of ListJobs. Empty strings and nil
// pointers are left off the query string.
type ListJobsParams struct {
	JID      string
	SystemID string
	Skip     *int
	Take     *int
}

// Values renders the parameters as form-style query values.
func (p ListJobsParams) Values() (url.Values, error) {
	values := url.Values{}

	if p.Skip != nil {
		if err := addQueryParam(values, "skip", *p.Skip); err != nil {
			return nil, err
		}
	}
	if p.Take != nil {
		if err := addQueryParam(values, "take", *p.Take); err != nil {
			return nil, err
		}
	}
	if p.JID != "" {
		if err := addQueryParam(values, "jid", p.JID); err != nil {
			return nil, err
		}
	}
	if p.SystemID != "" {
		if err := addQueryParam(values, "systemId", p.SystemID); err != nil {
			return nil, err
		}
	}

	return values, nil
}

func addQueryParam(values url.Values, name string, value any) error {
	queryFrag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return err
	}
	parsed, err := url.ParseQuery(queryFrag)
	if err != nil {
		return err
	}
	for k, v := range parsed {
		for _, v2 := range v {
			values.Add(k, v2)
		}
	}
	return nil
}

// Ptr returns a pointer to v, for optional request fields.
func Ptr[T any](v T) *T {
	return &v
}
