package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/v1adis1av28/level3/MedReminder/internal/agent"
	"github.com/v1adis1av28/level3/MedReminder/internal/app"
	"github.com/v1adis1av28/level3/MedReminder/internal/config"
	"github.com/v1adis1av28/level3/MedReminder/internal/events"
	"github.com/v1adis1av28/level3/MedReminder/internal/handlers"
	"github.com/v1adis1av28/level3/MedReminder/internal/service"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.Init()
	log := zlog.Logger.With().Str("service", "medreminder").Logger()

	cfg, err := config.NewAppConfig()
	if err != nil {
		log.Error().Err(err).Msg("refusing to start")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQConfig.URL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQConfig.URL, cfg.RabbitMQConfig.Queue, cfg.RabbitMQConfig.Retries, log)
		if err != nil {
			log.Error().Err(err).Msg("dispatch events disabled")
		} else {
			publisher = rp
		}
	}
	defer publisher.Close()

	sender := service.NewGatewaySender(cfg.GatewayConfig.URL, cfg.GatewayConfig.Token, cfg.GatewayConfig.Timeout, log)
	reminders := service.NewReminderService(sender,
		service.WithLogger(log),
		service.WithPollInterval(cfg.SchedulerConfig.PollInterval),
		service.WithEvents(publisher),
	)
	// one dispatch loop per process, started before any request is served
	reminders.Start(ctx)

	var runner handlers.Runner
	if cfg.AgentConfig.Mode == config.AgentModeLLM {
		tools := agent.NewToolRegistry()
		tools.Register(agent.NewScheduleReminderTool(reminders))
		client := agent.NewClient(cfg.AgentConfig.APIKey, cfg.AgentConfig.BaseURL)
		runner = agent.New(client, cfg.AgentConfig.Model, cfg.AgentConfig.MaxTurns, tools, log)
		log.Info().Str("model", cfg.AgentConfig.Model).Msg(agent.Name + " enabled")
	}

	a := app.NewApp(cfg, handlers.NewHandler(reminders, runner, log), log)
	go func() {
		a.MustStart()
	}()

	<-ctx.Done()

	a.Stop()
	log.Debug().Msg("Server gracefully stoped")
}
