package main

import (
	"io"
	"log/slog"

	"github.com/betaskintech/clara/pkg/ai"
	"github.com/betaskintech/clara/pkg/botcore"
	"github.com/betaskintech/clara/pkg/command"
	"github.com/betaskintech/clara/pkg/config"
	"github.com/betaskintech/clara/pkg/memory"
	"github.com/betaskintech/clara/pkg/observability"
	"github.com/betaskintech/clara/pkg/platform/web"
)

// app 汇总命令共用的组件。
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	memory   *memory.Manager
	service  *ai.Service
	pipeline *botcore.Chain
}

// newApp 加载配置并完成依赖装配。
//
//	config.Load -> logger -> metrics -> memory.Manager -> ai.Service -> Chain
//	                                                                    |- voice   -> assistant
//	                                                                    |- "/"     -> command.Manager
//	                                                                    `- default -> assistant
func newApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(logOut, cfg.Log)

	prompt, err := cfg.SystemPrompt()
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	mem := memory.NewManager(
		memory.WithIdleThreshold(cfg.Memory.IdleThreshold),
		memory.WithMaxHistoryTurns(cfg.Memory.MaxHistoryTurns),
		memory.WithSystemInstruction(prompt),
		memory.WithLogger(logger),
		memory.WithObserver(metrics),
	)

	svcOpts := []ai.ServiceOption{
		ai.WithLogger(logger),
		ai.WithCompletionObserver(metrics),
	}
	if ai.ResolveAPIKey(cfg.Transcription.APIKey) != "" {
		svcOpts = append(svcOpts, ai.WithTranscriber(ai.NewWhisperTranscriber(cfg.Transcription)))
	} else {
		logger.Warn("transcription disabled: no API key configured")
	}
	svc := ai.NewService(&cfg.AI, mem, svcOpts...)

	assistant := web.NewAssistantHandler(svc)
	chain := botcore.NewChain(assistant)
	chain.AddRoute("voice", botcore.MatchSource(botcore.SourceVoice), assistant)
	chain.AddRoute("command", botcore.MatchPrefix("/"), command.NewManager(
		command.NewRootCmd,
		mem,
		command.WithLogger(logger),
	))

	logger.Info("clara configured",
		slog.String("default_model", cfg.AI.DefaultModel),
		slog.Int("max_history_turns", cfg.Memory.MaxHistoryTurns),
		slog.Duration("idle_threshold", cfg.Memory.IdleThreshold),
	)
	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		memory:   mem,
		service:  svc,
		pipeline: chain,
	}, nil
}
