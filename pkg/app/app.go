// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/picvault/pkg/api"
	"github.com/yeisme/picvault/pkg/configs"
	"github.com/yeisme/picvault/pkg/context"
	"github.com/yeisme/picvault/pkg/internal/storage"
	"github.com/yeisme/picvault/pkg/log"
	"github.com/yeisme/picvault/pkg/metrics"
	"github.com/yeisme/picvault/pkg/middleware"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Engine  *gin.Engine
	config  *configs.AppConfig
	manager *storage.Manager
}

func NewApp(configPath string) *App {
	ctx := contextPkg.Background()
	engine := gin.New()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	// 初始化监控
	config := configs.GetConfig()
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	// 把存储资源挂到每个请求的 context 上，handler 经由它构造 service
	engine.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(
			context.WithStorageManager(c.Request.Context(), manager))
		c.Next()
	})

	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
	)

	api.RegisterGroup(engine)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	return &App{
		Engine:  engine,
		config:  config,
		manager: manager,
	}
}

// Run 启动 HTTP 服务并在收到终止信号后优雅退出.
func (a *App) Run() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Logger().Info().Str("addr", srv.Addr).Msg("picvault server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Logger().Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := contextPkg.WithTimeout(contextPkg.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := a.manager.Close(); err != nil {
		log.Logger().Warn().Err(err).Msg("close storage manager")
	}

	return nil
}
