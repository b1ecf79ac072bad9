package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/service"
)

// maxBodyBytes 普通 JSON 请求体上限
const maxBodyBytes = 1 << 20

// bindJSON 解析失败时直接写 400
func bindJSON(ctx *gin.Context, req interface{}) bool {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBodyBytes)
	if err := ctx.ShouldBindJSON(req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// writeValidation ValidationError → 400
func writeValidation(ctx *gin.Context, err error) bool {
	ve, ok := service.IsValidationError(err)
	if !ok {
		return false
	}
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:               ve.Message,
		FirstIncompleteStep: ve.Step,
	})
	return true
}

// writeInternal 5xx，细节只进日志
func writeInternal(ctx *gin.Context, err error, msg string) {
	_ = ctx.Error(err)
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msg})
}
