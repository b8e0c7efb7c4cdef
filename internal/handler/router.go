package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/cv-master/backend/internal/handler/chat"
	"github.com/zhouzirui/cv-master/backend/internal/handler/live"
	"github.com/zhouzirui/cv-master/backend/internal/handler/template"
	middlewarePkg "github.com/zhouzirui/cv-master/backend/internal/middleware"
	"github.com/zhouzirui/cv-master/backend/internal/model/cv"
	"github.com/zhouzirui/cv-master/backend/internal/service/session"
	"github.com/zhouzirui/cv-master/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(templates cv.TemplateStore, sess *session.Session, hub *live.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	templateHandler := template.New(templates)
	chatHandler := chat.New(sess)
	liveHandler := live.NewWebSocketHandler(sess, hub)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		templateHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		liveHandler.RegisterRoutes(api)
	})

	return r
}
