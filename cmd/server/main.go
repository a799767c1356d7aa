package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neurohabit/internal/config"
	"github.com/neurohabit/internal/db"
	"github.com/neurohabit/internal/handler"
	"github.com/neurohabit/internal/router"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 可选引导账号，便于本地联调
	if cfg.BootstrapEmail != "" && cfg.BootstrapPassword != "" {
		if err := db.EnsureUser(cfg.BootstrapEmail, cfg.BootstrapPassword); err != nil {
			log.Fatalf("failed to ensure bootstrap user: %v", err)
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("failed to load timezone %q: %v", cfg.Timezone, err)
	}

	api := handler.NewAPI(db.DB, cfg.ModelPath, cfg.JWTSecret, loc)

	// 预热模型：缺失不致命，预测接口会返回 503 直到工件就绪
	if err := api.Predictor().Load(); err != nil {
		log.Printf("model artifact not loaded (%v), /api/predict will return 503 until trainer runs", err)
	}

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.CORSOrigins)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
