package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/service"
)

// SessionController intake 副本
type SessionController struct {
	svc *service.SessionService
}

// NewSessionController 创建控制器
func NewSessionController(svc *service.SessionService) *SessionController {
	return &SessionController{svc: svc}
}

// Store 保存 intake 副本
// @Summary 保存 intake 副本
// @Tags Session
// @Accept json
// @Produce json
// @Param body body dto.StoreSessionRequest true "intake 副本"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/session-data [post]
func (c *SessionController) Store(ctx *gin.Context) {
	var req dto.StoreSessionRequest
	if !bindJSON(ctx, &req) {
		return
	}

	if err := c.svc.Store(ctx.Request.Context(), &req); err != nil {
		if writeValidation(ctx, err) {
			return
		}
		writeInternal(ctx, err, "Failed to save session data")
		return
	}

	ctx.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// Retrieve 读取 intake 副本
// @Summary 读取 intake 副本
// @Tags Session
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionDataResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/session-data/{session_id} [get]
func (c *SessionController) Retrieve(ctx *gin.Context) {
	resp, err := c.svc.Retrieve(ctx.Request.Context(), ctx.Param("session_id"))
	if errors.Is(err, service.ErrSessionNotFound) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Session data not found"})
		return
	}
	if err != nil {
		writeInternal(ctx, err, "Failed to load session data")
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
