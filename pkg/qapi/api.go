// Package qapi hosts a local implementation of the systems-management job
// service, for development and for exercising clients in tests.
package qapi

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/quatton/qsys/pkg/qapi/routes"
	"github.com/quatton/qsys/pkg/qapi/schemas"
	"github.com/quatton/qsys/pkg/qapi/services"
	"github.com/quatton/qsys/pkg/qlog"
	"github.com/quatton/qsys/pkg/qsys/models"
)

// jsonFormat decodes request bodies with numbers kept as json.Number so job
// arguments and metadata are stored unchanged. Huma's validation pass decodes
// into a bare any and expects float64, so that pass keeps json.Unmarshal.
var jsonFormat = huma.Format{
	Marshal: huma.DefaultJSONFormat.Marshal,
	Unmarshal: func(data []byte, v any) error {
		if _, ok := v.(*any); ok {
			return json.Unmarshal(data, v)
		}
		return models.DecodeValue(data, v)
	},
}

type Api struct {
	Api    huma.API
	Router *chi.Mux
}

type options struct {
	requestLog bool
}

type Option func(*options)

// WithRequestLog logs every request through chi's logger.
func WithRequestLog() Option {
	return func(o *options) { o.requestLog = true }
}

func init() {
	huma.NewError = schemas.NewError
}

// NewApi builds the router and API description. Routes are added by Register.
func NewApi(opts ...Option) *Api {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	router := chi.NewMux()
	if o.requestLog {
		router.Use(middleware.Logger)
	}
	router.Use(middleware.Recoverer)

	config := huma.DefaultConfig("qsys Systems Management", "1.0.0")
	config.Formats = map[string]huma.Format{
		"application/json": jsonFormat,
		"json":             jsonFormat,
	}
	config.Tags = []*huma.Tag{
		{Name: routes.TagJobs.String(), Description: "Job lifecycle"},
		{Name: routes.TagHealth.String(), Description: "Service health"},
	}

	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"apiKey": {
			Type:        "apiKey",
			In:          "header",
			Name:        "x-ni-api-key",
			Description: "API key",
		},
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "HS256 token signed with AUTH_SECRET",
		},
	}

	api := humachi.New(router, config)

	return &Api{Api: api, Router: router}
}

// Register installs the auth middleware and every route. svcs may be nil
// when only the OpenAPI document is needed.
func (a *Api) Register(svcs *services.Services, logger *qlog.Logger) {
	if svcs != nil && svcs.IAM != nil {
		a.Api.UseMiddleware(svcs.IAM.Middleware(a.Api, logger))
	}
	routes.RegisterAPI(a.Api, svcs)
}
