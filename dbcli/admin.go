package dbcli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Yarin78/morphy-sub004/database"
	"github.com/Yarin78/morphy-sub004/server"
	"github.com/Yarin78/morphy-sub004/snapshot"
)

func newCreateDBCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-db [name]",
		Short: "Create a new database",
		Long:  "Create a new database with empty indexes. Without a name a random one is chosen.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "db_" + strings.Split(uuid.NewString(), "-")[0]
			if len(args) > 0 {
				name = args[0]
			}

			db, err := database.New(a.dbPath(name), database.WithCacheSize(a.cfg.CacheSize))
			if err != nil {
				return err
			}
			id := db.ID()
			if err := db.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created database %s (%s)\n", name, id)
			return nil
		},
	}
}

func newListDBsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-dbs",
		Short: "List databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbs, err := database.ListDatabases(a.cfg.DataDir)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), dbs)
			}
			for _, name := range dbs {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <db>",
		Short: "Check the structure of every index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(args[0], func(db *database.Database) error {
				if err := db.ValidateAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: all %d indexes are valid\n", args[0], len(database.Kinds))
				return nil
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <db>",
		Short: "Show index sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(args[0], func(db *database.Database) error {
				stats, err := db.Stats()
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(cmd.OutOrStdout(), stats)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(w, "kind\tentities\tslots\trecord\tsize\t")
				var total uint64
				for _, st := range stats {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d B\t%s\t\n", st.Kind,
						humanize.Comma(int64(st.Live)), humanize.Comma(int64(st.Capacity)),
						st.PayloadSize, humanize.Bytes(uint64(st.Bytes)))
					total += uint64(st.Bytes)
				}
				fmt.Fprintf(w, "total\t\t\t\t%s\t\n", humanize.Bytes(total))
				return w.Flush()
			})
		},
	}
}

func newSnapshotCmd(a *app) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "snapshot <db>",
		Short: "Save a compressed copy of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only a database directory can be snapshotted.
			db, err := database.Load(a.dbPath(args[0]))
			if err != nil {
				return err
			}
			db.Close()
			snap, err := snapshot.Create(a.dbPath(args[0]), message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s: %d files, %s (%s compressed)\n", snap.ID, len(snap.Files),
				humanize.Bytes(uint64(snap.Size())), humanize.Bytes(uint64(snap.Compressed())))
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "snapshot message")
	return cmd
}

func newSnapshotsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <db>",
		Short: "List the snapshots of a database, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := snapshot.List(a.dbPath(args[0]))
			if err != nil {
				return err
			}
			if a.jsonOutput {
				if snaps == nil {
					snaps = []snapshot.Snapshot{}
				}
				return a.printJSON(cmd.OutOrStdout(), snaps)
			}
			for _, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-14s  %8s  %s\n", s.ID[:8],
					humanize.Time(s.Created), humanize.Bytes(uint64(s.Size())), s.Message)
			}
			return nil
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <db> <snapshot-id>",
		Short: "Replace a database with one of its snapshots",
		Long:  "Replace a database with one of its snapshots. A unique prefix of the snapshot id is enough.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := snapshot.Restore(a.dbPath(args[0]), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to snapshot %s\n", args[0], snap.ID)
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if listen != "" {
				cfg.Listen = listen
			}
			srv := server.New(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				srv.Shutdown(context.Background())
			}()
			return srv.Listen()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default :3000)")
	return cmd
}
