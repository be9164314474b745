// Package main is the Kensaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kensaku/internal/analytics"
	"github.com/hyperjump/kensaku/internal/cache"
	"github.com/hyperjump/kensaku/internal/cli"
	"github.com/hyperjump/kensaku/internal/client"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/profile"
	"github.com/hyperjump/kensaku/internal/query"
	"github.com/hyperjump/kensaku/internal/render"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kensaku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "kensaku server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "profiles":
		runProfiles()
	case "validate":
		runValidate()
	case "version", "--version", "-v":
		fmt.Printf("kensaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (profile reloads, cache activity, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Profiles.HotReloadOrDefault() {
		if err := components.Profiles.Watch(watchCtx); err != nil {
			logger.Warn("profile hot reload unavailable", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Profiles,
		components.Backend,
		components.Cache,
		components.Renderer,
		components.Tracker,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kensaku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kensaku search customer churn
  kensaku search "customer churn"                # same as above
  kensaku search --profile analysts churn rate
  kensaku search --type SEMANTIC "revenue attribution"
  kensaku search --output json churn             # structured JSON for other apps
`)
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8086", "gateway URL (empty = talk to the search backend directly)")
	profileName := fs.String("profile", "", "search profile name")
	queryType := fs.String("type", "", "query type (FULL_TEXT, SEMANTIC, HYBRID, ...)")
	limit := fs.Int("limit", 0, "number of results per page")
	offset := fs.Int("offset", 0, "result offset")
	deep := fs.Bool("deep", false, "use cursor-based deep paging")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	text := buildSearchText(fs.Args())
	if text == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	case "compact":
		format = cli.OutputCompact
	default:
		fmt.Printf("Unknown output format %q; use text, compact, or json\n", *outputFormat)
		os.Exit(1)
	}

	if *serverURL != "" {
		model, err := searchViaGateway(*serverURL, text, *profileName, *queryType, *limit, *offset, *deep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, model, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct mode: shape the request locally and call the search backend.
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	profiles := profile.NewStore(cfg.Profiles.Directory, profile.WithLogger(logger))
	if err := profiles.Load(); err != nil {
		logger.Warn("profile load failed, using defaults", zap.Error(err))
	}
	prof := profiles.Default()
	if *profileName != "" {
		if p, ok := profiles.Get(*profileName); ok {
			prof = p
		} else {
			fmt.Fprintf(os.Stderr, "Unknown profile %q, using default\n", *profileName)
		}
	}

	builder := query.NewBuilder(prof, nil)
	var opts []query.Option
	if *queryType != "" {
		opts = append(opts, query.WithType(models.QueryType(*queryType)))
	}
	if *deep {
		opts = append(opts, query.WithDeepPaging())
	}
	q, err := builder.Build(text, nil, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid query: %v\n", err)
		os.Exit(1)
	}
	if *limit > 0 {
		q.Pagination.Limit = *limit
	}
	if *offset > 0 {
		q.Pagination.Offset = *offset
	}
	if err := q.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid query: %v\n", err)
		os.Exit(1)
	}

	backend := client.NewHTTPBackend(cfg.Backend.BaseURL,
		client.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second}),
		client.WithBackendLogger(logger),
	)
	resp, err := backend.Search(context.Background(), q, prof.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	model := render.NewRenderer(0).Render(resp, q)
	if err := cli.WriteSearchResults(os.Stdout, model, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// gatewaySearchResponse is the shape of POST /api/v1/search responses.
type gatewaySearchResponse struct {
	Page *render.DisplayModel `json:"page"`
}

func searchViaGateway(serverURL, text, profileName, queryType string, limit, offset int, deep bool) (*render.DisplayModel, error) {
	payload := map[string]interface{}{"text": text}
	if profileName != "" {
		payload["profile"] = profileName
	}
	if queryType != "" {
		payload["type"] = queryType
	}
	if limit > 0 {
		payload["limit"] = limit
	}
	if offset > 0 {
		payload["offset"] = offset
	}
	if deep {
		payload["deep"] = true
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out gatewaySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Page, nil
}

func runProfiles() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: kensaku profiles <list|show> [name]")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8086", "gateway URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/profiles")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Profiles []string `json:"profiles"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, name := range out.Profiles {
			fmt.Println(name)
		}
	case "show":
		if fs.NArg() < 1 {
			fmt.Println("Usage: kensaku profiles show <name>")
			os.Exit(1)
		}
		resp, err := http.Get(*serverURL + "/api/v1/profiles/" + fs.Arg(0))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("Show failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Println(string(b))
	default:
		fmt.Printf("Unknown profiles subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// runValidate checks a profile file locally without a running server.
func runValidate() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: kensaku validate <profile.yaml>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read profile: %v\n", err)
		os.Exit(1)
	}
	var p profile.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		fmt.Printf("Failed to parse profile: %v\n", err)
		os.Exit(1)
	}
	profile.ApplyDefaults(&p)
	errs := profile.Validate(&p)
	if len(errs) == 0 {
		fmt.Printf("%s: valid (signature %s)\n", path, p.Signature())
		return
	}
	fmt.Printf("%s: %d problem(s)\n", path, len(errs))
	for _, e := range errs {
		fmt.Printf("  - %s\n", e.Error())
	}
	os.Exit(1)
}

// Components holds initialized services.
type Components struct {
	Profiles  *profile.Store
	Backend   *client.HTTPBackend
	Cache     *cache.ResultCache
	Renderer  *render.Renderer
	Analytics *analytics.SQLiteStore
	Tracker   *analytics.Tracker
}

func (c *Components) Close() {
	if c.Tracker != nil {
		c.Tracker.Close()
	}
	if c.Analytics != nil {
		_ = c.Analytics.Close()
	}
	if c.Profiles != nil {
		c.Profiles.Stop()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	profiles := profile.NewStore(cfg.Profiles.Directory, profile.WithLogger(logger))
	if err := profiles.Load(); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	backend := client.NewHTTPBackend(cfg.Backend.BaseURL,
		client.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second}),
		client.WithBackendLogger(logger),
	)

	resultCache := cache.New(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	renderer := render.NewRenderer(0)

	var store *analytics.SQLiteStore
	var tracker *analytics.Tracker
	analyticsCfg := profiles.Default().Analytics
	if analyticsCfg.Enabled {
		var err error
		store, err = analytics.NewSQLiteStore(cfg.Analytics.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize analytics store: %w", err)
		}
		tracker = analytics.NewTracker(store, analyticsCfg,
			analytics.WithForwarder(backend),
			analytics.WithTrackerLogger(logger),
		)
	}

	return &Components{
		Profiles:  profiles,
		Backend:   backend,
		Cache:     resultCache,
		Renderer:  renderer,
		Analytics: store,
		Tracker:   tracker,
	}, nil
}

func printUsage() {
	fmt.Println(`kensaku - Search gateway for the data catalog

Usage:
  kensaku server [flags]            Start the HTTP gateway
  kensaku search [flags] <query>    Run a search
  kensaku profiles <list|show>      Inspect installed search profiles
  kensaku validate <profile.yaml>   Validate a profile file
  kensaku version                   Show version
  kensaku help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kensaku/config.yaml)
  --debug            Enable debug logging (profile reloads, cache activity, etc.)

Search Flags:
  --config string    Config file path (for direct mode)
  --server string    Gateway URL (default: http://localhost:8086). Use empty (--server "") to call the search backend directly.
  --profile string   Search profile name
  --type string      Query type (FULL_TEXT, SEMANTIC, HYBRID, STRUCTURED, ...)
  --limit int        Results per page
  --offset int       Result offset
  --deep             Use cursor-based deep paging
  --output string    Output format: text, compact, or json (default: text)

Profiles Flags:
  --server string    Gateway URL (default: http://localhost:8086)

Examples:
  kensaku server
  kensaku search "customer churn"
  kensaku search --profile analysts churn rate
  kensaku search --output json churn
  kensaku profiles list
  kensaku validate profiles/analysts.yaml`)
}
