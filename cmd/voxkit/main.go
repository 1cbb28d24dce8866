// Command voxkit is a demo driver for the voxkit voice orchestration core.
// It wires config → storage → device → orchestrator and exposes a few
// one-shot operations for exercising the stack from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxkit/voxkit/internal/audiosession"
	"github.com/voxkit/voxkit/internal/backend"
	"github.com/voxkit/voxkit/internal/config"
	"github.com/voxkit/voxkit/internal/health"
	"github.com/voxkit/voxkit/internal/observe"
	"github.com/voxkit/voxkit/internal/orchestrator"
	"github.com/voxkit/voxkit/pkg/device/nullaudio"
	"github.com/voxkit/voxkit/pkg/kv"
	"github.com/voxkit/voxkit/pkg/kv/filestore"
	kvpostgres "github.com/voxkit/voxkit/pkg/kv/postgres"
	"github.com/voxkit/voxkit/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	say := flag.String("say", "", "synthesize the given text and play it")
	record := flag.Duration("record", 0, "record for the given duration and transcribe it")
	live := flag.Duration("live", 0, "run a live transcription session for the given duration")
	voices := flag.Bool("voices", false, "print the recommended voice for the configured language")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxkit: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxkit: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.LogLevel))
	slog.Info("voxkit starting", "config", *configPath, "backend", cfg.Backend.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxkit"})
	if err != nil {
		slog.Error("metrics init failed", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	// ── Storage ───────────────────────────────────────────────────────────────
	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("storage init failed", "err", err)
		return 1
	}
	defer closeStore()

	// ── Orchestrator ──────────────────────────────────────────────────────────
	session := audiosession.New(&nullaudio.Device{})
	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.APIKey,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}))
	if cfg.Metrics.ListenAddr != "" {
		go serveMetrics(cfg.Metrics.ListenAddr, health.StorageChecker(store), health.BackendChecker(client))
	}
	orch := orchestrator.New(session, client, store,
		orchestrator.WithLiveDefaults(cfg.Live.Model, cfg.Live.ChunkSize),
		orchestrator.WithCallbacks(orchestrator.Callbacks{
			OnStart: func(op string) { slog.Info("operation started", "op", op) },
			OnStop:  func(op string) { slog.Info("operation stopped", "op", op) },
			OnError: func(op string, err error) { slog.Error("operation failed", "op", op, "err", err) },
		}))
	if err := orch.Initialize(ctx); err != nil {
		slog.Error("initialize failed", "err", err)
		return 1
	}
	defer func() {
		if err := orch.Cleanup(context.Background()); err != nil {
			slog.Warn("cleanup error", "err", err)
		}
	}()

	switch {
	case *say != "":
		return report(orch.SynthesizeAndPlay(ctx, *say, "", 0, audiosession.DefaultPlaybackConfig()))
	case *record > 0:
		res, err := orch.RecordAndTranscribe(ctx, audiosession.RecordingConfig{
			Format:  cfg.Recording.Format,
			Quality: cfg.Recording.Quality,
		}, *record)
		if err == nil {
			fmt.Printf("%s\n", res.Text)
		}
		return report(err)
	case *live > 0:
		return report(runLive(ctx, orch, *live))
	case *voices:
		voice, ok, err := orch.GetRecommendedVoice(ctx, "")
		if err != nil {
			return report(err)
		}
		if !ok {
			fmt.Println("no voices available")
			return 0
		}
		fmt.Printf("%s (%s, %s)\n", voice.ID, voice.Language, voice.Gender)
		return 0
	default:
		flag.Usage()
		return 2
	}
}

// runLive streams microphone audio for d and prints final results as they arrive.
func runLive(ctx context.Context, orch *orchestrator.Orchestrator, d time.Duration) error {
	err := orch.StartLiveTranscription(ctx, func(r types.TranscriptionResult) {
		if r.IsFinal {
			fmt.Printf("%s\n", r.Text)
		}
	}, "")
	if err != nil {
		return err
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	uri, err := orch.StopLiveTranscription(context.Background())
	if err != nil {
		return err
	}
	slog.Info("live session finished", "artifact", uri)
	return nil
}

// buildStore constructs the configured settings storage backend.
func buildStore(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := kvpostgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return filestore.New(cfg.Storage.Path), func() {}, nil
	}
}

// serveMetrics exposes the Prometheus scrape endpoint plus liveness and
// readiness probes.
func serveMetrics(addr string, checkers ...health.Checker) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)
	slog.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server error", "err", err)
	}
}

func report(err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxkit: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
