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

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/api"
	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/services/puyo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	deps := api.Dependencies{
		JWTSecret:      cfg.JWTSecret,
		BypassAuth:     cfg.BypassAuth,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	// DATABASE_URL があればリザルトの保存とランキングを有効にする
	var resultRepo database.ResultRepository
	if cfg.DatabaseURL != "" {
		dbService, err := database.NewDatabaseService(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("データベースへの接続に失敗しました: %v", err)
		}
		defer dbService.Close()
		if err := dbService.ApplySchema(); err != nil {
			log.Fatalf("スキーマの適用に失敗しました: %v", err)
		}
		resultRepo = database.NewResultRepository(dbService.DB)
		deps.Results = resultRepo
		deps.Names = dbService
	} else {
		log.Printf("warning: DATABASE_URL is not set, results will not be saved")
	}

	if cfg.BypassAuth {
		log.Printf("warning: BYPASS_AUTH is enabled, do not use this in production")
	}

	sessionManager := puyo.NewSessionManager(resultRepo, puyo.SessionSettings{
		TickInterval:        cfg.TickInterval,
		BroadcastEveryTicks: cfg.BroadcastEveryTicks,
	})
	deps.Sessions = sessionManager

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(deps),
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("サーバーの起動に失敗しました: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("シャットダウンシグナルを受信しました")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("サーバーのシャットダウンに失敗しました: %v", err)
	}
	sessionManager.Shutdown()
}
