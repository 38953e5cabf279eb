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

	"github.com/codenest/ai-chat/backend/internal/config"
	"github.com/codenest/ai-chat/backend/internal/handler"
	"github.com/codenest/ai-chat/backend/internal/model/llm"
	chatService "github.com/codenest/ai-chat/backend/internal/service/chat"
	"github.com/codenest/ai-chat/backend/internal/service/gateway"
	"github.com/codenest/ai-chat/backend/internal/store"
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

	conversationStore, err := store.OpenConversationStore(cfg.Storage.DataPath)
	if err != nil {
		log.Fatalf("failed to open conversation store: %v", err)
	}

	models := llm.NewMemoryStore(llm.Seed())
	tokens := store.NewTokenFile(cfg.Storage.TokenPath)
	gw := gateway.New(tokens, cfg.Gateway.HostedAPIKey, cfg.Gateway.Timeout)

	chatSvc := chatService.NewService(conversationStore, models)
	log.Printf("loaded %d conversation(s) from %s", len(chatSvc.Conversations()), cfg.Storage.DataPath)

	router := handler.NewRouter(models, chatSvc, gw)

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

	log.Printf("CodeNest AI chat backend listening on %s", addr)
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
