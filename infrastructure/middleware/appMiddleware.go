package middlewares

import (
	"errors"

	"github.com/gin-gonic/gin"
	apperrors "veriface.io/application/appErrors"
	"veriface.io/application/interfaces"
	"veriface.io/infrastructure/useragent"
)

// UserAgentMiddleware builds the request-scoped ApplicationContext from the
// client headers and stores it on the gin context for downstream handlers.
func UserAgentMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		agent := ctx.Request.Header.Get("User-Agent")
		if agent == "" {
			apperrors.ClientError(ctx, "user agent header missing", []error{errors.New("user agent header missing")}, nil)
			ctx.Abort()
			return
		}
		agentDetails := useragent.ParseUserAgent(agent)

		appContext := &interfaces.ApplicationContext[any]{
			Ctx:       ctx,
			DeviceID:  ctx.Request.Header.Get("X-Device-Id"),
			UserAgent: agent,
			ClientOS:  agentDetails.OS,
			Keys:      map[string]any{},
		}
		ctx.Set("AppContext", appContext)
		ctx.Next()
	}
}
