package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/v1adis1av28/level3/MedReminder/internal/config"
	"github.com/v1adis1av28/level3/MedReminder/internal/handlers"
	"github.com/wb-go/wbf/ginext"
)

type App struct {
	Router  *ginext.Engine
	Server  *http.Server
	Config  *config.Config
	Handler *handlers.Handler
	log     zerolog.Logger
}

func NewApp(cfg *config.Config, handler *handlers.Handler, log zerolog.Logger) *App {
	router := ginext.New("")

	router.Use(func(c *ginext.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	server := &http.Server{
		Addr:    cfg.ServerConfig.Addr,
		Handler: router,
	}

	app := &App{
		Router:  router,
		Server:  server,
		Config:  cfg,
		Handler: handler,
		log:     log,
	}
	app.SetupRoutes()

	return app
}

func (a *App) SetupRoutes() {
	metricsHandler := promhttp.Handler()

	a.Router.POST("/reminder", a.Handler.CreateReminderHandler)
	a.Router.GET("/healthz", a.Handler.HealthHandler)
	a.Router.GET("/metrics", func(c *ginext.Context) {
		metricsHandler.ServeHTTP(c.Writer, c.Request)
	})
}

func (a *App) MustStart() {
	a.log.Info().Str("addr", a.Server.Addr).Msg("http server listening")
	if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Fatal().Err(err).Msg("http server failed")
	}
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("error on server shutdown")
	} else {
		a.log.Debug().Msg("server stoped gracefully")
	}
}
