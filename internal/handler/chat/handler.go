package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/cv-master/backend/internal/service/ai"
	sessionService "github.com/zhouzirui/cv-master/backend/internal/service/session"
	"github.com/zhouzirui/cv-master/backend/pkg/utils"
)

// Handler 问答流程的HTTP处理器
type Handler struct {
	session *sessionService.Session
}

// New 创建聊天处理器
func New(session *sessionService.Session) *Handler {
	return &Handler{session: session}
}

// RegisterRoutes 注册问答相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Post("/session/reset", h.handleReset)
	r.Post("/answers", h.handleSubmitAnswer)
	r.Post("/template", h.handleSelectTemplate)
	r.Post("/generation/retry", h.handleRetry)
	r.Get("/preview", h.handlePreview)
}

// handleGetSession 返回当前会话快照
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.session.Snapshot())
}

// handleReset 重新开始，清空已收集的答案
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.session.Reset())
}

// handleSubmitAnswer 提交当前步骤的文字回答
func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.session.SubmitAnswer(r.Context(), payload.Text); err != nil {
		respondSessionError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.session.Snapshot())
}

// handleSelectTemplate 选择模板并触发生成
func (h *Handler) handleSelectTemplate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID int `json:"id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.session.SelectTemplate(r.Context(), payload.ID); err != nil {
		respondSessionError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.session.Snapshot())
}

// handleRetry 生成失败后重试，保留已填写的数据
func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RetryGeneration(r.Context()); err != nil {
		respondSessionError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.session.Snapshot())
}

// handlePreview 返回生成的 HTML 文档
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	document, err := h.session.Document()
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	utils.RespondHTML(w, http.StatusOK, document)
}

// respondSessionError 将会话错误映射为HTTP状态码
func respondSessionError(w http.ResponseWriter, err error) {
	var genErr *ai.GenerationError

	switch {
	case errors.Is(err, sessionService.ErrEmptyAnswer):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sessionService.ErrAwaitingResponse),
		errors.Is(err, sessionService.ErrInputClosed),
		errors.Is(err, sessionService.ErrNotTemplateStep),
		errors.Is(err, sessionService.ErrRetryUnavailable),
		errors.Is(err, sessionService.ErrSessionReset):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &genErr):
		utils.RespondError(w, http.StatusBadGateway, genErr.Error())
	default:
		log.Printf("[chat] unexpected session error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
