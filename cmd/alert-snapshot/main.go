package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/logging"
	"github.com/mr1hm/go-risk-alerts/internal/registry"
	"github.com/mr1hm/go-risk-alerts/internal/repository"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:      "alert-snapshot",
		Usage:     "Inspect and move alert registry snapshots",
		UsageText: "alert-snapshot [--config path] <command>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config file",
				Value:   config.DefaultConfigPath,
				EnvVars: []string{"EWS_CONFIG"},
			},
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

			db, err := repository.NewSQLiteDB(cfg.Snapshot.DBPath)
			if err != nil {
				return fmt.Errorf("open snapshot store: %w", err)
			}
			ctx.App.Metadata["db"] = db
			return nil
		},
		After: func(ctx *cli.Context) error {
			if db, ok := ctx.App.Metadata["db"].(*repository.SQLiteDB); ok {
				return db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			newListCmd(),
			newExportCmd(),
			newImportCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Fatalf("alert-snapshot: %v", err)
	}
}

func getDB(ctx *cli.Context) *repository.SQLiteDB {
	db, ok := ctx.App.Metadata["db"].(*repository.SQLiteDB)
	if !ok {
		panic("missing snapshot store")
	}
	return db
}

func newListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored snapshots, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum snapshots to show"},
		},
		Action: func(ctx *cli.Context) error {
			snaps, err := getDB(ctx).ListSnapshots(ctx.Context, ctx.Int("limit"))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTAKEN AT\tALERTS")
			for _, s := range snaps {
				fmt.Fprintf(w, "%d\t%s\t%d\n", s.ID, s.TakenAt.UTC().Format(time.RFC3339), s.AlertCount)
			}
			return w.Flush()
		},
	}
}

func newExportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the latest stored snapshot as JSON",
		ArgsUsage: "[output file, default stdout]",
		Action: func(ctx *cli.Context) error {
			snap, err := getDB(ctx).LatestSnapshot(ctx.Context)
			if err != nil {
				return err
			}

			var out io.Writer = ctx.App.Writer
			if path := ctx.Args().First(); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			_, err = out.Write(snap.Data)
			return err
		},
	}
}

func newImportCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Validate a snapshot file and store it as the latest snapshot",
		ArgsUsage: "<snapshot file>",
		Action: func(ctx *cli.Context) error {
			path := ctx.Args().First()
			if path == "" {
				return cli.Exit("snapshot file required", 2)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			n, err := importSnapshot(ctx.Context, getDB(ctx), data)
			if err != nil {
				return err
			}
			slog.Info("snapshot imported", "file", path, "alerts", n)
			return nil
		},
	}
}

// importSnapshot loads data into a scratch registry so only valid snapshots
// reach the store, then saves the re-exported form.
func importSnapshot(ctx context.Context, store repository.SnapshotRepository, data []byte) (int, error) {
	reg := registry.New()
	n, err := reg.Import(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}

	normalized, err := reg.Snapshot()
	if err != nil {
		return 0, err
	}

	snap := &repository.Snapshot{
		TakenAt:    time.Now().UTC(),
		AlertCount: n,
		Data:       normalized,
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		return 0, err
	}
	return n, nil
}
