package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/kinship/internal/db"
	"github.com/persistorai/kinship/internal/graph"
	"github.com/persistorai/kinship/internal/models"
	"github.com/persistorai/kinship/internal/service"
	"github.com/persistorai/kinship/internal/store"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			pool, err := a.database(cmd.Context())
			if err != nil {
				return err
			}

			if status {
				states, err := db.MigrationStatus(cmd.Context(), pool, nil)
				if err != nil {
					return err
				}

				return a.printer.emit(states, migrationHeaders, migrationRows(states))
			}

			if err := db.RunMigrations(cmd.Context(), pool, a.log, nil); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", db.SchemaVersion())

			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "List migrations and whether each is applied, without migrating")

	return cmd
}

// treeImporter writes a whole tree into a store.
type treeImporter interface {
	ImportTree(ctx context.Context, data *models.TreeData, name string) error
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a tree file into SQLite (--sqlite) or PostgreSQL",
		Long: `Import replaces every person and relationship of the tree with the file's
records. The tree id comes from --tree, then the file's tree_id, then the
file name. The tree is built and checked before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			data, err := store.ReadTreeFile(args[0])
			if err != nil {
				return err
			}

			switch {
			case flags.tree != "":
				data.TreeID = flags.tree
			case data.TreeID == "":
				data.TreeID = store.TreeIDFromPath(args[0])
			}

			if _, err := graph.Build(data.Persons, data.Relationships); err != nil {
				return err
			}

			dst, err := a.importer(cmd.Context(), flags)
			if err != nil {
				return err
			}

			if err := dst.ImportTree(cmd.Context(), data, name); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported tree %s: %d persons, %d relationships\n",
				data.TreeID, len(data.Persons), len(data.Relationships))

			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Human-readable tree name")

	return cmd
}

func (a *app) importer(ctx context.Context, flags *globalFlags) (treeImporter, error) {
	if flags.sqlite != "" {
		s, err := store.OpenSQLite(ctx, flags.sqlite, a.log)
		if err != nil {
			return nil, err
		}

		a.closers = append(a.closers, func() { s.Close() }) //nolint:errcheck // closing on exit.

		return s, nil
	}

	pool, err := a.database(ctx)
	if err != nil {
		return nil, err
	}

	return store.NewFamilyStore(pool, a.log), nil
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	var warmRoots []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow tree changes in PostgreSQL and keep the relationship cache warm",
		Long: `Watch listens for family_changes notifications, drops the stale graph of
each changed tree and, with --warm-root, recomputes the relationships of the
given people to everyone in the tree. With --tree only that tree is warmed.
KINSHIP_METRICS_ADDR exposes Prometheus metrics while watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.watch(ctx, flags.tree, warmRoots)
		},
	}
	cmd.Flags().StringSliceVar(&warmRoots, "warm-root", nil, "Person IDs whose relationships are recomputed after each change")

	return cmd
}

func (a *app) watch(ctx context.Context, onlyTree string, warmRoots []string) error {
	pool, err := a.database(ctx)
	if err != nil {
		return err
	}

	trees := service.NewTreeService(store.NewFamilyStore(pool, a.log), a.log)
	warm := service.NewWarmWorker(trees, a.relations, a.log, 0)

	enqueue := func(treeID string) {
		if len(warmRoots) == 0 || (onlyTree != "" && treeID != onlyTree) {
			return
		}

		warm.Enqueue(&service.WarmJob{TreeID: treeID, RootIDs: warmRoots})
	}

	listener := db.NewChangeListener(a.log, pool, trees, func(treeID string) {
		a.log.WithFields(logrus.Fields{
			"tree_id": treeID,
			"cache":   a.cache.Stats(),
		}).Info("tree changed")
		enqueue(treeID)
	})

	if err := listener.Start(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		warm.Run(ctx)
		close(done)
	}()

	if onlyTree != "" {
		enqueue(onlyTree)
	}

	var srv *http.Server
	if a.cfg.MetricsAddr != "" {
		srv = serveMetrics(a.cfg.MetricsAddr, a.log)
	}

	a.log.WithField("channel", db.ChangeChannel).Info("watching for tree changes")

	<-ctx.Done()
	<-done

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("metrics server shutdown")
		}
	}

	a.log.Info("watch stopped")

	return nil
}

func serveMetrics(addr string, log *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	log.WithField("addr", addr).Info("serving metrics")

	return srv
}
