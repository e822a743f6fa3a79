package iam

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qsys/pkg/qlog"
)

// APIKeyHeader is the header carrying API keys.
const APIKeyHeader = "x-ni-api-key"

// Middleware authenticates operations that declare a security requirement.
// Operations without one, such as the health check, are always allowed.
func (s *IAMService) Middleware(api huma.API, logger *qlog.Logger) func(ctx huma.Context, next func(huma.Context)) {
	if logger == nil {
		logger = qlog.NewNop()
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if !s.Enabled() || op == nil || len(op.Security) == 0 {
			next(ctx)
			return
		}

		var bearer string
		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				bearer = parts[1]
			}
		}

		p, err := s.Authenticate(ctx.Header(APIKeyHeader), bearer)
		if err != nil {
			logger.Warn("rejected request", "operation", op.OperationID, "error", err)
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized", err)
			return
		}

		logger.Debug("authenticated", "subject", p.Subject, "method", p.Method)
		next(huma.WithValue(ctx, principalKey, p))
	}
}
