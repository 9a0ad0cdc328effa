package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/handler"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/middleware"
	"github.com/bitfantasy/nimo-mes/internal/shared/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	zapLogger.Info("Starting nimo-mes service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate MES实体
	if err := db.AutoMigrate(
		&entity.Order{},
		&entity.OrderStatusHistory{},
		&entity.Partner{},
		&entity.ProductionItem{},
		&entity.PrototypeProduction{},
		&entity.QCTemplate{},
		&entity.QCTemplateSection{},
		&entity.QCTemplateCheckpoint{},
		&entity.QCInspection{},
		&entity.QCSectionResult{},
		&entity.QCCheckpointResult{},
		&entity.QCInspectionPhoto{},
		&entity.ActivityLog{},
	); err != nil {
		zapLogger.Warn("AutoMigrate MES tables warning", zap.Error(err))
	}

	// 手动兜底唯一索引（幂等创建依赖这几个约束，AutoMigrate因FK问题可能跳过）
	migrationSQL := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_mes_qc_inspections_idem_key ON mes_qc_inspections(idempotency_key)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_section_result_pair ON mes_qc_section_results(inspection_id, section_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_checkpoint_result_pair ON mes_qc_checkpoint_results(inspection_id, checkpoint_id)",
		"CREATE INDEX IF NOT EXISTS idx_mes_order_status_histories_order ON mes_order_status_histories(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_mes_activity_logs_entity ON mes_activity_logs(entity_type, entity_id)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Migration SQL warning (may already exist)", zap.String("sql", sql), zap.Error(err))
		}
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化对象存储（未配置时照片上传接口返回明确错误，其余功能不受影响）
	var store *storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		store, err = storage.New(context.Background(), cfg.MinIO)
		if err != nil {
			zapLogger.Warn("Failed to init object storage, photo upload disabled", zap.Error(err))
			store = nil
		}
	}

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, store)
	handlers := handler.NewHandlers(services, repos.ActivityLog)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// SSE 实时推送（需要认证，支持 query param token）
		sseGroup := v1.Group("/sse")
		sseGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			sseGroup.GET("/events", h.SSE.Stream)
		}

		// 需要认证的接口
		authorized := v1.Group("/mes")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 订单管理
			orders := authorized.Group("/orders")
			{
				orders.GET("", h.Order.ListOrders)
				orders.POST("", h.Order.CreateOrder)
				orders.POST("/import", h.Order.ImportOrders)
				orders.GET("/:id", h.Order.GetOrder)
				orders.PUT("/:id", h.Order.UpdateOrder)
				orders.POST("/:id/transition", h.Order.TransitionOrderStatus)
				orders.GET("/:id/status-history", h.Order.GetStatusHistory)
			}

			// 合作伙伴
			partners := authorized.Group("/partners")
			{
				partners.GET("", h.Partner.ListPartners)
				partners.POST("", h.Partner.CreatePartner)
				partners.GET("/:id", h.Partner.GetPartner)
				partners.PUT("/:id", h.Partner.UpdatePartner)
				partners.DELETE("/:id", h.Partner.DeletePartner)
			}

			// 生产项
			items := authorized.Group("/production-items")
			{
				items.GET("", h.Production.ListItems)
				items.POST("", h.Production.CreateItem)
				items.GET("/:id", h.Production.GetItem)
				items.PUT("/:id", h.Production.UpdateItem)
			}

			// 打样
			prototypes := authorized.Group("/prototypes")
			{
				prototypes.GET("", h.Production.ListPrototypes)
				prototypes.POST("", h.Production.CreatePrototype)
				prototypes.GET("/:id", h.Production.GetPrototype)
				prototypes.POST("/:id/next-round", h.Production.StartNextRound)
			}

			// 检验模板
			templates := authorized.Group("/qc-templates")
			{
				templates.GET("", h.Template.ListTemplates)
				templates.POST("", h.Template.CreateTemplate)
				templates.GET("/:id", h.Template.GetTemplate)
				templates.PUT("/:id", h.Template.UpdateTemplate)
				templates.POST("/:id/render", h.Template.RenderTemplate)
				templates.POST("/:id/sections", h.Template.AddSection)
			}
			authorized.POST("/qc-template-sections/:sectionId/checkpoints", h.Template.AddCheckpoint)

			// 质检检验
			inspections := authorized.Group("/inspections")
			{
				inspections.GET("", h.Inspection.ListInspections)
				inspections.POST("", h.Inspection.StartInspection)
				inspections.GET("/rework", h.Inspection.GetReworkInspection)
				inspections.GET("/:id", h.Inspection.GetInspection)
				inspections.GET("/:id/progress", h.Inspection.GetProgress)
				inspections.GET("/:id/validate-can-pass", h.Inspection.ValidateCanPass)
				inspections.POST("/:id/submit", h.Inspection.SubmitInspection)
				inspections.GET("/:id/section-results", h.Inspection.GetSectionResults)
				inspections.POST("/:id/sections/:sectionId/batch-pass", h.Inspection.BatchPassSection)
				inspections.POST("/:id/sections/:sectionId/complete", h.Inspection.CompleteSection)
				inspections.GET("/:id/checkpoint-results", h.Inspection.GetCheckpointResults)
				inspections.POST("/:id/checkpoint-results", h.Inspection.SubmitCheckpointResult)
				inspections.GET("/:id/photos", h.Inspection.ListPhotos)
				inspections.POST("/:id/photos", h.Inspection.UploadPhoto)
			}

			// 报表
			reports := authorized.Group("/reports")
			{
				reports.GET("/order-status", h.Report.GetOrderStatusStats)
				reports.GET("/qc-summary", h.Report.GetQCSummary)
				reports.GET("/partner-qc", h.Report.GetPartnerQCStats)
				reports.GET("/inspections/export", h.Report.ExportInspections)
			}

			// 操作日志
			authorized.GET("/activities", h.Activity.ListActivities)
		}
	}
}
