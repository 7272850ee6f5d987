package controller

import (
	"context"
	"net/http"
	"strconv"

	apperrors "veriface.io/application/appErrors"
	"veriface.io/application/constants"
	"veriface.io/application/controller/dto"
	"veriface.io/application/interfaces"
	"veriface.io/application/repository"
	"veriface.io/application/utils"
	"veriface.io/infrastructure/biometric"
	biometric_types "veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
	server_response "veriface.io/infrastructure/serverResponse"
	"veriface.io/infrastructure/validator"
)

// VerifyFace runs the verification pipeline for a captured image against a
// user's enrolled references. Rejections are a successful HTTP exchange; the
// response code distinguishes the outcomes.
func VerifyFace(ctx *interfaces.ApplicationContext[dto.VerifyFaceDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}

	imageData, err := utils.DecodeBase64Image(ctx.Body.Image)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid image format", nil, nil)
		return
	}

	meta := biometric_types.AuditMeta{RecordID: ctx.Body.RecordID}
	if ctx.ClientOS != "" {
		meta.ClientPlatform = &ctx.ClientOS
	}
	result := biometric.Service.Verify(context.Background(), ctx.Body.UserID, imageData, meta)

	if result.Verified {
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "face verified", result, nil, &constants.VERIFICATION_PASSED)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "face verification rejected", result, nil, &constants.VERIFICATION_REJECTED)
}

// EnrollFace extracts and stores reference embeddings for a user from a
// quality-gated image.
func EnrollFace(ctx *interfaces.ApplicationContext[dto.EnrollFaceDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}

	imageData, err := utils.DecodeBase64Image(ctx.Body.Image)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid image format", nil, nil)
		return
	}

	embeddings, quality, err := biometric.Service.Enroll(context.Background(), ctx.Body.UserID, imageData)
	if err != nil {
		logger.Warning("enrollment rejected", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "userID",
			Data: ctx.Body.UserID,
		})
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, err.Error(), map[string]any{
			"quality": quality,
		}, nil, &constants.ENROLLMENT_REJECTED)
		return
	}

	models := make([]string, 0, len(embeddings))
	for _, embedding := range embeddings {
		models = append(models, embedding.ModelType)
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusCreated, "face enrolled", map[string]any{
		"models":  models,
		"quality": quality,
	}, nil, &constants.ENROLLMENT_COMPLETED)
}

// VerificationHistory pages through a user's audit log, most recent first.
func VerificationHistory(ctx *interfaces.ApplicationContext[any]) {
	userID := ctx.GetStringParameter("userID")
	if userID == "" {
		apperrors.ClientError(ctx.Ctx, "userID is required", nil, nil)
		return
	}

	pageSize := int64(20)
	if raw := ctx.GetStringParameter("pageSize"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			apperrors.ClientError(ctx.Ctx, "pageSize must be a positive integer", nil, nil)
			return
		}
		pageSize = parsed
	}
	if pageSize > constants.MAX_HISTORY_PAGE_SIZE {
		pageSize = constants.MAX_HISTORY_PAGE_SIZE
	}

	var lastID *string
	if raw := ctx.GetStringParameter("lastID"); raw != "" {
		lastID = &raw
	}

	logs, err := repository.VerificationLogRepo().FindManyPaginated(context.Background(), map[string]interface{}{
		"userID": userID,
	}, pageSize, lastID, -1)
	if err != nil {
		logger.Error("an error occured while fetching verification history", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		apperrors.FatalServerError(ctx.Ctx, err)
		return
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "verification history fetched", logs, nil, nil)
}

// ServiceStats reports aggregate engine throughput.
func ServiceStats(ctx *interfaces.ApplicationContext[any]) {
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "service stats fetched", biometric.Service.Stats(), nil, nil)
}
