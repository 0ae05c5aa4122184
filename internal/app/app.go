package app

import (
	"academician_hub_backend/internal/config"
	"academician_hub_backend/internal/controller"
	"academician_hub_backend/internal/repository"
	"academician_hub_backend/internal/service"
	"academician_hub_backend/pkg/configwatcher"
	"academician_hub_backend/pkg/database"
	"academician_hub_backend/pkg/logger"
	"academician_hub_backend/pkg/monitoring"
	"academician_hub_backend/pkg/security"
	"academician_hub_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user           *repository.UserRepository
	catalog        *repository.CatalogRepository
	unitProgress   *repository.UnitProgressRepository
	courseProgress *repository.CourseProgressRepository
}

type services struct {
	auth           *service.AuthService
	catalog        *service.CatalogService
	reward         *service.RewardService
	unitProgress   *service.UnitProgressService
	courseProgress *service.CourseProgressService
}

type controllers struct {
	auth     *controller.AuthController
	course   *controller.CourseController
	progress *controller.ProgressController
	lesson   *controller.LessonController
	admin    *controller.AdminController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:           repository.NewUserRepository(db),
		catalog:        repository.NewCatalogRepository(db),
		unitProgress:   repository.NewUnitProgressRepository(db),
		courseProgress: repository.NewCourseProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.catalog = service.NewCatalogService(repos.catalog)
	s.reward = service.NewRewardService(repos.user, rdb, cfg.Reward)
	s.unitProgress = service.NewUnitProgressService(repos.catalog, repos.unitProgress, s.reward)
	s.courseProgress = service.NewCourseProgressService(repos.catalog, repos.courseProgress, repos.user, s.reward)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		course:   controller.NewCourseController(s.catalog),
		progress: controller.NewProgressController(s.unitProgress, s.courseProgress),
		lesson:   controller.NewLessonController(s.courseProgress),
		admin:    controller.NewAdminController(s.reward, s.unitProgress),
		health:   controller.NewHealthController(),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	interval := time.Duration(a.Config.Reward.RetryIntervalSecs) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		for range ticker.C {
			if err := s.reward.ProcessPendingRewards(); err != nil {
				logger.Log.Error("pending reward replay error", zap.Error(err))
			}
		}
	}()

	// 奖励参数支持热重载，改及格线/XP 不需要重启
	go configwatcher.WatchConfig(filepath.Join("configs", "config.yaml"), func(newCfg *config.Config) {
		newCfg.Reward.ApplyDefaults()
		s.reward.UpdateConfig(newCfg.Reward)
		logger.Log.Info("reward config reloaded",
			zap.Int("lessonXP", newCfg.Reward.LessonXP),
			zap.Int("passingScore", newCfg.Reward.PassingScore))
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("academician-hub", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, repos, cfg)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
