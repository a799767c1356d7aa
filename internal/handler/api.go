package handler

import (
	"time"

	"github.com/neurohabit/internal/service"
	"gorm.io/gorm"
)

// API 聚合 HTTP 处理器共享的服务依赖
type API struct {
	db        *gorm.DB
	habits    *service.HabitService
	events    *service.EventService
	features  *service.FeatureService
	predictor *service.PredictorService
	dashboard *service.DashboardService
	jwtSecret []byte
	loc       *time.Location
	now       func() time.Time
}

// NewAPI 构造处理器集合并完成服务装配
func NewAPI(db *gorm.DB, modelPath, jwtSecret string, loc *time.Location) *API {
	if loc == nil {
		loc = time.Local
	}

	streaks := service.NewStreakService(db, loc)
	pets := service.NewPetService(db)

	return &API{
		db:        db,
		habits:    service.NewHabitService(db),
		events:    service.NewEventService(db, streaks, pets, loc),
		features:  service.NewFeatureService(db, loc),
		predictor: service.NewPredictorService(modelPath, service.DefaultRecommendationRules()),
		dashboard: service.NewDashboardService(db),
		jwtSecret: []byte(jwtSecret),
		loc:       loc,
		now:       time.Now,
	}
}

// DB 暴露底层 gorm 实例，主要供测试种子数据使用。
func (a *API) DB() *gorm.DB {
	return a.db
}

// Predictor 暴露预测服务，供启动时预热与运维端点复用。
func (a *API) Predictor() *service.PredictorService {
	return a.predictor
}

// WithClock 覆盖时间源，主要用于测试。
func (a *API) WithClock(now func() time.Time) *API {
	if now != nil {
		a.now = now
	}
	return a
}
