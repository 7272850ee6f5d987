package routev1

import (
	apperrors "veriface.io/application/appErrors"
	"veriface.io/application/controller"
	"veriface.io/application/controller/dto"
	"veriface.io/application/interfaces"

	"github.com/gin-gonic/gin"
)

func VerificationRouter(router *gin.RouterGroup) {
	verificationRouter := router.Group("/verification")
	{
		verificationRouter.POST("/verify", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.VerifyFaceDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.VerifyFace(&interfaces.ApplicationContext[dto.VerifyFaceDTO]{
				Ctx:       ctx,
				Body:      &body,
				DeviceID:  appContext.DeviceID,
				UserAgent: appContext.UserAgent,
				ClientOS:  appContext.ClientOS,
			})
		})

		verificationRouter.POST("/enroll", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.EnrollFaceDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.EnrollFace(&interfaces.ApplicationContext[dto.EnrollFaceDTO]{
				Ctx:       ctx,
				Body:      &body,
				DeviceID:  appContext.DeviceID,
				UserAgent: appContext.UserAgent,
				ClientOS:  appContext.ClientOS,
			})
		})

		verificationRouter.GET("/history/:userID", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			controller.VerificationHistory(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				DeviceID: appContext.DeviceID,
				Param: map[string]any{
					"userID":   ctx.Param("userID"),
					"pageSize": ctx.Query("pageSize"),
					"lastID":   ctx.Query("lastID"),
				},
			})
		})

		verificationRouter.GET("/stats", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			controller.ServiceStats(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				DeviceID: appContext.DeviceID,
			})
		})
	}
}
