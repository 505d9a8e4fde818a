package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dukerupert/grocysync/internal/backup"
	"github.com/dukerupert/grocysync/internal/config"
	"github.com/dukerupert/grocysync/internal/database"
	"github.com/dukerupert/grocysync/internal/gateway"
	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/logging"
	"github.com/dukerupert/grocysync/internal/lookup"
	"github.com/dukerupert/grocysync/internal/repository"
	"github.com/dukerupert/grocysync/internal/server"
	"github.com/dukerupert/grocysync/internal/store"
)

const usage = `usage: grocysync [-config path] <command> [flags]

commands:
  sync [-force] [entity ...]   refresh the local cache from the server
  serve                        run the local JSON/WebSocket bridge
  resolve [-input] <code>      resolve a barcode, grocycode or product name
  pending                      list pending products and purchases
  backup                       upload an encrypted cache snapshot
  restore [-key key]           replace the cache with a snapshot
`

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/grocysync/config.toml)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "sync":
		err = runSync(ctx, cfg, logger, args)
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "resolve":
		err = runResolve(ctx, cfg, args)
	case "pending":
		err = runPending(ctx, cfg)
	case "backup":
		err = runBackup(ctx, cfg, logger)
	case "restore":
		err = runRestore(ctx, cfg, logger, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return database.Open(cfg.DBPath)
}

func newClient(cfg config.Config, logger *slog.Logger) (*grocy.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return grocy.NewClient(grocy.Config{
		ServerURL: cfg.ServerURL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.HTTPTimeout,
	}, logger.With("component", "grocy"))
}

func backupConfig(cfg config.Config) backup.Config {
	return backup.Config{
		S3:            cfg.S3,
		DBPath:        cfg.DBPath,
		Passphrase:    cfg.Backup.Passphrase,
		Interval:      cfg.Backup.Interval,
		RetentionDays: cfg.Backup.RetentionDays,
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSync(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	force := fs.Bool("force", false, "ignore stored watermarks")
	fs.Parse(args)

	entities := grocy.Mirrored
	if fs.NArg() > 0 {
		entities = nil
		for _, name := range fs.Args() {
			e, ok := grocy.ParseEntity(name)
			if !ok || e.LocalOnly() {
				return fmt.Errorf("cannot sync %q", name)
			}
			entities = append(entities, e)
		}
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stores := store.New(db)
	gw := gateway.New(client, stores, nil, logger.With("component", "gateway"))

	start := time.Now()
	if *force {
		err = gw.ForceUpdate(ctx, entities...)
	} else {
		err = gw.UpdateData(ctx, false, entities...)
	}
	if err != nil {
		return fmt.Errorf("sync: %s", grocy.UserMessage(err))
	}

	marks, err := stores.Watermarks.All(ctx)
	if err != nil {
		return err
	}
	logger.Info("sync complete", "entities", len(entities), "duration", time.Since(start))
	return printJSON(marks)
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, client, backupConfig(cfg), logger)

	// Warm the cache; an unreachable server is not fatal.
	go func() {
		if err := srv.Gateway().UpdateData(ctx, false, grocy.Mirrored...); err != nil {
			logger.Warn("initial sync failed", "error", err)
		}
	}()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.Limiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("grocysync bridge listening", "addr", cfg.Listen, "server", cfg.ServerURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runResolve(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	input := fs.Bool("input", false, "treat the code as typed text (names before barcodes)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("resolve needs exactly one code")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := repository.NewRecipeEditRepository(store.New(db)).Read(ctx)
	if err != nil {
		return err
	}

	policy := lookup.ScanPolicy
	if *input {
		policy = lookup.InputPolicy
	}
	res := lookup.NewResolver(lookup.Catalog{Products: data.Products, Barcodes: data.ProductBarcodes}, policy).Resolve(fs.Arg(0))

	switch res.Kind {
	case lookup.KindProduct:
		fmt.Printf("%s\t%d\t%s (via %s)\n", res.Kind, int64(res.Product.ID), res.Product.Name, res.Step)
	default:
		fmt.Printf("%s\t%s\n", res.Kind, res.Input)
	}
	return nil
}

func runPending(ctx context.Context, cfg config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := repository.NewPendingPurchasesRepository(store.New(db)).Read(ctx)
	if err != nil {
		return err
	}
	if len(data.PendingProducts) == 0 {
		fmt.Println("no pending products")
		return nil
	}

	for _, p := range data.PendingProducts {
		var codes []string
		for _, b := range data.PendingProductBarcodes {
			if b.PendingProductID == p.ID {
				codes = append(codes, b.Barcode)
			}
		}
		fmt.Printf("%d\t%s\t[%s]\n", int64(p.ID), p.Name, strings.Join(codes, ", "))
		for _, pp := range data.PendingPurchases {
			if pp.PendingProductID == p.ID {
				fmt.Printf("\t%g @ %g\tbest before %s\tbought %s\n", float64(pp.Amount), float64(pp.Price), pp.BestBeforeDate, pp.PurchasedDate)
			}
		}
	}
	return nil
}

func runBackup(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	m := backup.NewManager(backupConfig(cfg), db, nil, logger.With("component", "backup"))
	snap, err := m.RunNow(ctx, cfg.Backup.Passphrase)
	if err != nil {
		return err
	}
	if _, err := m.Cleanup(ctx, cfg.Backup.RetentionDays); err != nil {
		logger.Warn("backup cleanup failed", "error", err)
	}
	return printJSON(snap)
}

func runRestore(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	key := fs.String("key", "", "snapshot key (default newest)")
	fs.Parse(args)

	m := backup.NewManager(backupConfig(cfg), nil, nil, logger.With("component", "backup"))
	restored, err := m.Restore(ctx, *key, cfg.Backup.Passphrase)
	if err != nil {
		return err
	}

	// Reopen to bring an older snapshot up to the current schema.
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open restored cache: %w", err)
	}
	defer db.Close()
	if err := store.NewWatermarkStore(db).InvalidateAll(ctx); err != nil {
		return err
	}

	fmt.Println("restored", restored)
	return nil
}
