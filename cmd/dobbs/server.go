package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gotodobbs/assistant/internal/api"
	"github.com/gotodobbs/assistant/internal/appointment"
	"github.com/gotodobbs/assistant/internal/cache"
	"github.com/gotodobbs/assistant/internal/config"
	"github.com/gotodobbs/assistant/internal/faq"
	"github.com/gotodobbs/assistant/internal/generative"
	"github.com/gotodobbs/assistant/internal/leads"
	"github.com/gotodobbs/assistant/internal/router"
	"github.com/gotodobbs/assistant/internal/storage"
	"github.com/gotodobbs/assistant/internal/tts"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the assistant HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and integration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

const (
	leadsPollInterval = 500 * time.Millisecond
	shutdownTimeout   = 5 * time.Second
	statusListLimit   = 100
)

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "dobbs.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(level string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)})))
}

// services is the domain core shared by the HTTP server and the MCP server.
type services struct {
	store        *storage.Store
	cache        cache.Cache
	catalog      *faq.Catalog
	router       *router.Router
	appointments *appointment.Service
}

func loadCatalog(cfg config.Config) (*faq.Catalog, error) {
	if cfg.FAQ.CatalogPath != "" {
		return faq.LoadFile(cfg.FAQ.CatalogPath)
	}
	return faq.Default()
}

func buildServices(cfg config.Config) (*services, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading FAQ catalog: %w", err)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	answers, err := cache.New(cache.Config{
		Backend:   cfg.Cache.Backend,
		RedisAddr: cfg.Cache.RedisAddr,
		TTL:       cfg.Cache.TTL,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening answer cache: %w", err)
	}

	gen := generative.New(generative.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: float32(cfg.LLM.Temperature),
	})
	if _, disabled := gen.(generative.Disabled); disabled {
		slog.Warn("no LLM API key configured, unmatched questions get the fixed answer")
	}

	opts := []router.Option{
		router.WithThreshold(cfg.FAQ.Threshold),
		router.WithTimeout(cfg.LLM.Timeout),
		router.WithLogger(slog.Default()),
	}
	if answers != nil {
		opts = append(opts, router.WithCache(answers, cfg.Cache.TTL))
	}
	if cfg.LLM.RateLimit > 0 {
		opts = append(opts, router.WithLimiter(rate.NewLimiter(rate.Limit(cfg.LLM.RateLimit), max(cfg.LLM.Burst, 1))))
	}

	return &services{
		store:        store,
		cache:        answers,
		catalog:      catalog,
		router:       router.New(catalog, gen, opts...),
		appointments: appointment.NewService(store, appointment.WithLeadExport(cfg.Leads.Enabled)),
	}, nil
}

func (s *services) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Warn("closing answer cache", "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "dobbs version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// A healthy server on our port means another instance owns it.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("dobbs is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("dobbs is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	speech := tts.NewClientWithBaseURL(cfg.TTS.APIKey, cfg.TTS.VoiceID, cfg.TTS.BaseURL)
	if !speech.Configured() {
		slog.Warn("no text-to-speech API key configured, speech requests will fail")
	}

	handler := api.NewHandler(api.Deps{
		Router:       svc.router,
		Appointments: svc.appointments,
		Speech:       speech,
		SpeechLimit:  api.NewIPLimiter(cfg.TTS.RateLimit, cfg.TTS.Burst),
		Health:       svc.store,
		AdminToken:   cfg.Server.AdminToken,
		Origins:      append(slices.Clone(api.DefaultOrigins), cfg.Server.AppOrigin),
		StaticDir:    cfg.Server.StaticDir,
		Logger:       slog.Default(),
	})

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "dobbs listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if cfg.Leads.Enabled {
		sink := leads.NewFile(cfg.LeadsFile())
		worker := leads.NewWorker(svc.store, sink, leadsPollInterval)
		slog.Info("lead export enabled", "file", sink.Path())
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("dobbs is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop dobbs (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to dobbs (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	running := false
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		running = resp.StatusCode == http.StatusOK
		if running {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "unhealthy (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("LLM", "%s at %s", cfg.LLM.Model, cfg.LLM.BaseURL)
	printStatus("FAQ threshold", "%.2f", cfg.FAQ.Threshold)
	printStatus("Answer cache", "%s", cfg.Cache.Backend)

	secrets := config.Secrets(cfg)
	for _, env := range slices.Sorted(maps.Keys(secrets)) {
		state := "not set"
		if secrets[env] {
			state = "set"
		}
		printStatus(env, "%s", state)
	}

	if running {
		resp, err := client.get(ctx, fmt.Sprintf("/api/appointments?limit=%d", statusListLimit))
		if err == nil {
			var records []appointment.Record
			if decodeJSON(resp, &records) == nil {
				printStatus("Appointments", "%s", countLabel(len(records), statusListLimit))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	if cfg.Leads.Enabled {
		printStatus("Leads file", "%s", cfg.LeadsFile())
	}
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
