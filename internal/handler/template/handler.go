package template

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/cv-master/backend/internal/model/cv"
	"github.com/zhouzirui/cv-master/backend/pkg/utils"
)

// Handler 模板目录的HTTP处理器
type Handler struct {
	templates cv.TemplateStore
}

// New 创建模板处理器
func New(templates cv.TemplateStore) *Handler {
	return &Handler{
		templates: templates,
	}
}

// RegisterRoutes 注册模板相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/templates", h.handleListTemplates)
	r.Get("/templates/{templateID}", h.handleGetTemplate)
}

// handleListTemplates 列出所有可选模板
func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.templates.List())
}

// handleGetTemplate 按编号查询模板
func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "templateID"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "template id must be a number")
		return
	}

	option, ok := h.templates.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "template not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, option)
}
