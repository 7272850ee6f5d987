package server_response

import (
	"os"

	"github.com/gin-gonic/gin"
	"veriface.io/infrastructure/logger"
)

type ginResponder struct{}

var Responder ginResponder

// Respond sends a JSON response to the client.
func (gr ginResponder) Respond(ctx interface{}, code int, message string, payload interface{}, errs []error, responseCode *uint) {
	ginCtx, ok := (ctx).(*gin.Context)
	if !ok {
		logger.Error("could not transform *interface{} to gin.Context in serverResponse package", logger.LoggerOptions{
			Key:  "payload",
			Data: ctx,
		})
		return
	}
	ginCtx.Abort()
	response := map[string]any{
		"message": message,
		"body":    payload,
	}
	if responseCode != nil {
		response["response_code"] = responseCode
	}
	if os.Getenv("ENV") != "prod" {
		logger.Info("response", logger.LoggerOptions{
			Key:  "message",
			Data: message,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: errs,
		})
	}
	if errs != nil {
		errMsgs := []string{}
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		response["errors"] = errMsgs
	}
	ginCtx.JSON(code, response)
}
