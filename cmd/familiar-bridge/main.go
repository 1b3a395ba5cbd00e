// ABOUTME: Entry point for familiar-bridge.
// ABOUTME: Bridges Google Chat webhook events to a conversational-AI backend.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/familiar-bridge/internal/auth"
	"github.com/2389/familiar-bridge/internal/backend"
	"github.com/2389/familiar-bridge/internal/bridge"
	"github.com/2389/familiar-bridge/internal/chatapi"
	"github.com/2389/familiar-bridge/internal/config"
	"github.com/2389/familiar-bridge/internal/conversation"
	"github.com/2389/familiar-bridge/internal/dedupe"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
    ╭─────────────────────────────────────╮
    │                                     │
    │   ┏━╸┏━┓┏┳┓╻╻  ╻┏━┓┏━┓   familiar   │
    │   ┣╸ ┣━┫┃┃┃┃┃  ┃┣━┫┣┳┛   bridge     │
    │   ╹  ╹ ╹╹ ╹╹┗━╸╹╹ ╹╹┗╸              │
    │                                     │
    ╰─────────────────────────────────────╯
`

// getConfigPath returns the path to the bridge config file.
// Priority: FAMILIAR_CONFIG env var > XDG_CONFIG_HOME/familiar/bridge.toml > ~/.config/familiar/bridge.toml
func getConfigPath() string {
	if envPath := os.Getenv("FAMILIAR_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "bridge.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "familiar", "bridge.toml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: familiar-bridge <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the webhook bridge")
		fmt.Println("  health   Check bridge health")
		fmt.Println("  version  Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Backend:  %s\n", cfg.Backend.URL)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	if cfg.Chat.AsyncReplies {
		green.Print("    ▶ ")
		fmt.Println("Replies:  async via Chat API")
	}
	fmt.Println()

	logger.Info("starting familiar-bridge",
		"config", configPath,
		"backend", cfg.Backend.URL,
		"http_addr", cfg.Server.HTTPAddr,
	)

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// buildServer assembles the backend client, resolver, dedupe window, and
// HTTP surface into a runnable server.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bridge.Server, error) {
	client := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
	})

	resolver := conversation.NewResolver(client, logger)
	window := dedupe.NewWindow(cfg.Bridge.DedupeTTL, cfg.Bridge.DedupeMax)

	var poster bridge.ReplyPoster
	if cfg.Chat.AsyncReplies {
		p, err := chatapi.New(ctx, cfg.Chat.CredentialsFile, logger)
		if err != nil {
			window.Close()
			return nil, fmt.Errorf("creating chat client: %w", err)
		}
		poster = p
	}

	service := bridge.NewService(bridge.Options{
		Resolver:     resolver,
		Sender:       client,
		Poster:       poster,
		Window:       window,
		Logger:       logger,
		Greeting:     cfg.Bridge.Greeting,
		ReplyTimeout: cfg.Bridge.ReplyTimeout,
	})

	var webhook func(http.Handler) http.Handler
	if cfg.Auth.Enabled {
		webhook = auth.Middleware(auth.NewVerifier(cfg.Auth.Audience), logger)
	}

	mux := http.NewServeMux()
	bridge.NewHandler(service, version, logger).Register(mux, webhook)

	srv := bridge.NewServer(cfg, mux, logger)
	srv.OnShutdown(window.Close)
	return srv, nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
