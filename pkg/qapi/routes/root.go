package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qsys/pkg/qapi/services"
)

// RegisterAPI registers every operation. svcs may be nil when only the
// OpenAPI document is needed.
func RegisterAPI(api huma.API, svcs *services.Services) {
	if svcs == nil {
		RegisterHealth(api, "")
		RegisterJobs(api, nil)
		return
	}
	RegisterHealth(api, svcs.StoreName)
	RegisterJobs(api, svcs.Jobs)
}
