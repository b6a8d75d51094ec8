package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/api/tool"
	"github.com/Xunop/e-oasis-mcp/internal/config"
	"github.com/Xunop/e-oasis-mcp/internal/library"
	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/rss"
	"github.com/Xunop/e-oasis-mcp/internal/server"
	"github.com/Xunop/e-oasis-mcp/internal/storage"
	"github.com/Xunop/e-oasis-mcp/internal/store"
	"github.com/Xunop/e-oasis-mcp/internal/store/db"
	"github.com/Xunop/e-oasis-mcp/internal/version"
	"github.com/Xunop/e-oasis-mcp/internal/worker"
)

var (
	configFile  string
	data        string
	libraryPath string
	logLevel    string
	httpEnabled bool
	force       bool
	workers     int

	rootCmd = &cobra.Command{
		Use:   "e-oasis-mcp",
		Short: "E-Oasis MCP serves a local e-book library and RSS feeds to AI assistants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), serve)
		},
	}

	scanCmd = &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory for EPUB and PDF files and update the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				dir := config.Opts.LibraryPath
				if len(args) == 1 {
					dir = args[0]
				}
				if dir == "" {
					return errors.New("no directory given and no library_path configured")
				}
				res, err := a.library.Scan(ctx, dir)
				if err != nil {
					return err
				}
				fmt.Printf("%d books: %d added, %d updated, %d removed, %d unchanged\n",
					len(res.Books), res.Added, res.Updated, res.Removed, res.Unchanged)
				return nil
			})
		},
	}

	indexCmd = &cobra.Command{
		Use:   "index [book...]",
		Short: "Index books for full-text search, every catalog book when none is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				queries := args
				if len(queries) == 0 {
					books, err := a.library.ListLibrary(ctx)
					if err != nil {
						return err
					}
					for _, b := range books {
						queries = append(queries, b.ID)
					}
				}
				failed := 0
				for _, r := range worker.IndexAll(ctx, a.library, workers, queries, force) {
					switch {
					case r.Err != nil:
						failed++
						fmt.Printf("%s: %v\n", r.Job.Query, r.Err)
					case r.Index.Unchanged:
						fmt.Printf("%s: unchanged\n", r.Index.Title)
					default:
						fmt.Printf("%s: %d chapters indexed\n", r.Index.Title, r.Index.Indexed)
					}
				}
				if failed > 0 {
					return errors.Errorf("%d of %d books failed", failed, len(queries))
				}
				return nil
			})
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.GetCurrentVersion())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&data, "data", "", "data directory")
	rootCmd.PersistentFlags().StringVar(&libraryPath, "library", "", "library directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.Flags().BoolVar(&httpEnabled, "http", false, "also serve the HTTP API")
	indexCmd.Flags().BoolVar(&force, "force", false, "re-index unchanged books")
	indexCmd.Flags().IntVar(&workers, "workers", 2, "number of index workers")

	rootCmd.AddCommand(scanCmd, indexCmd, versionCmd)
}

type app struct {
	db      *db.DB
	store   *store.Store
	library *library.Service
	feeds   *rss.Service
	images  *rss.ImageProxy
}

func loadConfig() error {
	if _, err := config.GetConfig(); err != nil {
		return err
	}
	if configFile != "" {
		if _, err := config.ParseFile(configFile); err != nil {
			return err
		}
	}
	if data != "" {
		config.Opts.Data = data
	}
	if libraryPath != "" {
		config.Opts.LibraryPath = libraryPath
	}
	if logLevel != "" {
		config.Opts.LogLevel = logLevel
	}
	if httpEnabled {
		config.Opts.HTTPEnabled = true
	}
	if err := config.Opts.ResolveData(); err != nil {
		return err
	}
	if !filepath.IsAbs(config.Opts.LogFile) {
		config.Opts.LogFile = filepath.Join(config.Opts.Data, config.Opts.LogFile)
	}
	return nil
}

// withApp wires the stores and services, runs fn and releases everything.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	if err := loadConfig(); err != nil {
		return err
	}
	log.Logger = log.NewLogger()
	defer log.Logger.Sync()

	d, err := db.NewDB(config.Opts.DSN)
	if err != nil {
		log.Error("Error connecting to database", zap.Error(err))
		return err
	}
	defer d.Close()
	if err := d.Migrate(ctx); err != nil {
		log.Error("Error migrating database", zap.Error(err))
		return err
	}
	if info, err := os.Stat(config.Opts.DSN); err == nil {
		log.Debug("Database ready", zap.String("dsn", config.Opts.DSN), zap.String("size", humanize.Bytes(uint64(info.Size()))))
	}

	s := store.NewStore(d.DB)
	a := &app{
		db:    d,
		store: s,
		library: library.NewService(s,
			storage.NewLocalStorage(config.Opts.CatalogPath()),
			storage.NewLocalStorage(config.Opts.SessionPath()),
			library.ConfigFromOptions(config.Opts)),
		feeds:  rss.NewServiceFromOptions(s, config.Opts),
		images: rss.NewImageProxy(config.Opts.ImageTimeoutDuration(), config.Opts.MaxImageSize),
	}
	return fn(ctx, a)
}

func serve(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := worker.NewScheduler()
	if err := scheduler.AddSweep("documents", a.library.DocumentCache()); err != nil {
		return err
	}
	if err := scheduler.AddSweep("texts", a.library.TextCache()); err != nil {
		return err
	}
	if interval := config.Opts.FeedRefreshDuration(); interval > 0 {
		err := scheduler.AddInterval("feeds", interval, func(ctx context.Context) error {
			_, err := a.feeds.RefreshAll(ctx, false)
			return err
		})
		if err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	if config.Opts.HTTPEnabled {
		server.StartServer(ctx, a.store, a.library, a.images)
	}

	mcpServer := tool.NewServer(a.library, a.feeds, a.images, config.Opts.LibraryPath)
	if err := mcpServer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("MCP server stopped", zap.Error(err))
		return err
	}
	log.Info("Server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
