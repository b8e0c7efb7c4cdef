package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/cv-master/backend/internal/config"
	"github.com/zhouzirui/cv-master/backend/internal/handler"
	"github.com/zhouzirui/cv-master/backend/internal/handler/live"
	"github.com/zhouzirui/cv-master/backend/internal/model/cv"
	"github.com/zhouzirui/cv-master/backend/internal/service/ai"
	"github.com/zhouzirui/cv-master/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	templates := cv.NewMemoryCatalog(cv.SeedTemplates())

	// Initialize generation provider
	var provider ai.Provider
	if cfg.AI.Enabled() {
		provider, err = ai.NewProvider(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize %s provider: %v", cfg.AI.Provider, err)
			log.Println("continuing without AI functionality - generation requests will fail")
			provider = nil
		} else {
			log.Printf("AI provider %s initialized, model=%s", cfg.AI.Provider, cfg.AI.ModelName())
		}
	} else {
		log.Printf("%s 凭证未配置，生成请求将返回失败提示", cfg.AI.Provider)
	}
	generator := ai.NewService(provider, cfg.AI)

	hub := live.NewHub()
	sess := session.New(generator, session.Options{
		PromptDelay: cfg.Session.PromptDelay,
		OnChange:    hub.Broadcast,
	})

	router := handler.NewRouter(templates, sess, hub)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("CV Master backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
