package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alphabill-org/econsec/engine"
	"github.com/alphabill-org/econsec/internal/debug"
	"github.com/alphabill-org/econsec/keyvaluedb/boltdb"
	"github.com/alphabill-org/econsec/logger"
	"github.com/alphabill-org/econsec/rpc"
)

const defaultDBFileName = "econsec.db"

type serveFlags struct {
	*baseConfiguration
	engineFlags

	Address             string
	DBFile              string
	MaxBodySize         int64
	HistorySaveInterval time.Duration
}

func newServeCmd(baseConfig *baseConfiguration) *cobra.Command {
	flags := &serveFlags{baseConfiguration: baseConfig}
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "Starts the REST API server",
		Long:  `Starts the REST API server. Network records and validator risk histories are persisted in the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.Address, "address", "localhost:8080", "address the REST API server listens on")
	cmd.Flags().StringVar(&flags.DBFile, "db", "", fmt.Sprintf("path to the database file (default %s)", filepath.Join("$ECONSEC_HOME", defaultDBFileName)))
	cmd.Flags().Int64Var(&flags.MaxBodySize, "max-body-size", rpc.DefaultMaxBodySize, "maximum size of the request body in bytes")
	cmd.Flags().DurationVar(&flags.HistorySaveInterval, "history-save-interval", time.Minute,
		"how often validator risk histories are saved, zero means only on shutdown")
	flags.addEngineFlags(cmd)
	return cmd
}

func (f *serveFlags) dbFile() string {
	if f.DBFile != "" {
		return f.DBFile
	}
	return filepath.Join(f.HomeDir, defaultDBFileName)
}

func serveRun(ctx context.Context, flags *serveFlags) (rErr error) {
	log := flags.observe.Logger()
	log.InfoContext(ctx, fmt.Sprintf("starting econsec: BuildInfo=%s", debug.ReadBuildInfo()))

	dbFile := flags.dbFile()
	if err := os.MkdirAll(filepath.Dir(dbFile), 0700); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := boltdb.New(dbFile)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { rErr = errors.Join(rErr, db.Close()) }()

	e, err := engine.New(flags.observe, append(flags.options(), engine.WithDB(db))...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	if err := e.LoadHistory(); err != nil {
		return err
	}
	defer func() {
		if err := e.SaveHistory(); err != nil {
			rErr = errors.Join(rErr, err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		server := rpc.NewRESTServer(flags.Address, flags.MaxBodySize, flags.observe, log,
			rpc.MetricsEndpoints(flags.observe.MetricsHandler()),
			rpc.RiskEndpoints(e, log),
		)
		log.InfoContext(ctx, fmt.Sprintf("REST API server starting on %s", server.Addr))
		return httpsrv.Run(ctx, *server, httpsrv.ShutdownTimeout(5*time.Second))
	})

	g.Go(func() error {
		return saveHistoryLoop(ctx, e, flags.HistorySaveInterval, log)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func saveHistoryLoop(ctx context.Context, e *engine.Engine, interval time.Duration, log *slog.Logger) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// failure to save is not fatal, next tick or shutdown will try again
			if err := e.SaveHistory(); err != nil {
				log.WarnContext(ctx, "saving validator risk history", logger.Error(err))
			}
		}
	}
}
