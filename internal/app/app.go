package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/voxlabs/interviewd/internal/cache"
	"github.com/voxlabs/interviewd/internal/config"
	"github.com/voxlabs/interviewd/internal/database"
	wshandler "github.com/voxlabs/interviewd/internal/handlers/websocket"
	"github.com/voxlabs/interviewd/internal/interview"
	"github.com/voxlabs/interviewd/internal/prompt"
	"github.com/voxlabs/interviewd/internal/repository/transcript"
	"github.com/voxlabs/interviewd/internal/watchdog"
	"github.com/voxlabs/interviewd/internal/worker"
	"github.com/voxlabs/interviewd/pkg/Logger"
	"github.com/voxlabs/interviewd/pkg/speech/stt/whisper"
	"github.com/voxlabs/interviewd/pkg/speech/tts/piper"
)

// App assembles every subsystem and owns the background goroutines. Start
// launches them; Shutdown drains them in reverse order.
type App struct {
	Logger      *Logger.Logger
	Cfg         *config.Settings
	Registry    *interview.Registry
	Service     *interview.Service
	Emitter     *wshandler.Emitter
	Pool        *worker.Pool
	WSHandler   *wshandler.Handler
	Watchdog    *watchdog.Watchdog
	Transcripts transcript.Repository

	db     *gorm.DB
	cancel context.CancelFunc
}

func New(cfg *config.Settings, logger *Logger.Logger) (*App, error) {
	registry := interview.NewRegistry(logger.Named("registry"))
	emitter := wshandler.NewEmitter(cfg.Workers.EmitQueueSize, logger.Named("emitter"))
	service := interview.NewService(registry, emitter, logger.Named("service"))

	llm, err := NewReplier(cfg.LLM, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to build llm provider: %w", err)
	}

	responseCache := newResponseCache(cfg, logger)
	prompts := prompt.NewBuilder(cfg.Interview.InterviewerPrompts, cfg.Interview.MaxHistoryTurns)

	var stt worker.Transcriber
	if cfg.Voice.STTURL != "" {
		stt = whisper.New(cfg.Voice.STTURL, logger.Named("whisper"))
	} else {
		return nil, fmt.Errorf("voice.stt_url is required")
	}

	var tts worker.Synthesizer
	if cfg.Voice.TTSURL != "" {
		if err := os.MkdirAll(cfg.Voice.ResponseDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create response dir: %w", err)
		}
		tts = piper.New(cfg.Voice.TTSURL, cfg.Voice.TTSVoice, cfg.Voice.ResponseDir, logger.Named("piper"))
	}

	pipeline := worker.NewPipeline(
		stt, llm, tts,
		responseCache, prompts,
		cfg.Voice.SampleRate,
		cfg.LLM.MaxRetries,
		logger.Named("pipeline"),
	)
	pool := worker.NewPool(
		cfg.Workers.Count,
		cfg.Workers.JobQueueSize,
		cfg.Workers.ResultQueueSize,
		pipeline,
		logger.Named("pool"),
	)

	wsHandler := wshandler.NewHandler(logger.Named("gateway"), cfg, registry, service, emitter, pool)

	wd := watchdog.New(
		service,
		cfg.Interview.WatchdogInterval(),
		cfg.Interview.StallThreshold(),
		cfg.Interview.SessionTimeout(),
		logger.Named("watchdog"),
	)

	a := &App{
		Logger:    logger,
		Cfg:       cfg,
		Registry:  registry,
		Service:   service,
		Emitter:   emitter,
		Pool:      pool,
		WSHandler: wsHandler,
		Watchdog:  wd,
	}

	if cfg.DB.Enabled {
		db, err := database.InitDB(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.MigrateDB(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.db = db
		a.Transcripts = transcript.NewGormTranscriptRepo(db)
	}

	return a, nil
}

// newResponseCache prefers Redis when configured and falls back to the
// in-process LRU.
func newResponseCache(cfg *config.Settings, logger *Logger.Logger) cache.ResponseCache {
	ttl := time.Duration(cfg.LLM.CacheTTLMins) * time.Minute
	if cfg.Redis.Enabled {
		client, err := database.NewRedis(cfg.Redis)
		if err == nil {
			logger.Infof("using redis response cache at %s", cfg.Redis.Addr)
			return cache.NewRedisCache(client, ttl, logger.Named("cache"))
		}
		logger.Warnf("redis unavailable (%v), using in-memory response cache", err)
	}
	return cache.NewMemoryCache(cfg.LLM.CacheSize, ttl)
}

// Start launches the pool, the emitter drain, the result drain, and the
// watchdog.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	a.Pool.Start(ctx)
	go a.Emitter.Run(ctx)
	go a.Service.RunDrain(ctx, a.Pool.Results())
	go a.Watchdog.Run(ctx)

	a.Logger.Infof("interview engine started: %d workers, watchdog every %s",
		a.Cfg.Workers.Count, a.Cfg.Interview.WatchdogInterval())
}

// Shutdown stops the pool first so the drain sees every in-flight result,
// then cancels the background goroutines.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Pool.Shutdown(ctx)
	if a.cancel != nil {
		a.cancel()
	}
	return err
}
