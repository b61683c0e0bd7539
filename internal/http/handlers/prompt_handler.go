package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/designai/studio-backend/internal/services"
)

// EnhancePromptRequest is the body of POST /prompt/enhance.
type EnhancePromptRequest struct {
	Prompt string `json:"prompt" binding:"required" example:"白色运动鞋 产品主图"`
}

// EnhancePromptResponse carries the rewritten prompt.
type EnhancePromptResponse struct {
	Prompt string `json:"prompt" example:"一双白色运动鞋置于浅灰色无缝背景前，柔和棚拍光，45度俯视构图，电商主图风格"`
}

// EnhancePrompt godoc
// @ID          enhancePrompt
// @Summary     Rewrite a short idea into a detailed generation prompt
// @Tags        Generation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.EnhancePromptRequest  true  "Prompt"
// @Success     200   {object}  handlers.EnhancePromptResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing or oversized prompt"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     502   {object}  handlers.ErrorResponse  "LLM upstream failure"
// @Failure     503   {object}  handlers.ErrorResponse  "LLM not configured"
// @Router      /prompt/enhance [post]
func (h *Handlers) EnhancePrompt(c *gin.Context) {
	var req EnhancePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt is required")
		return
	}

	out, err := h.prompts.Enhance(c.Request.Context(), userID(c), req.Prompt)
	switch {
	case err == nil:
		ok(c, http.StatusOK, EnhancePromptResponse{Prompt: out})
	case errors.Is(err, services.ErrPromptRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt is required")
	case errors.Is(err, services.ErrPromptTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt too long")
	case errors.Is(err, services.ErrLLMUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "prompt enhancement is not configured", err)
	default:
		fail(c, http.StatusBadGateway, ErrCodeUpstreamError, "prompt enhancement failed", err)
	}
}
