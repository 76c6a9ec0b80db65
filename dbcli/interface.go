// Package dbcli is the morphy command line: database management, entity edits and
// the HTTP server.
package dbcli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Yarin78/morphy-sub004/config"
	"github.com/Yarin78/morphy-sub004/database"
)

// app carries what every command needs once the persistent flags are parsed.
type app struct {
	configPath string
	dataDir    string
	logLevel   string
	jsonOutput bool

	cfg config.Config
}

// RootCmd is the command line as run by Execute.
var RootCmd = NewRootCmd()

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "morphy",
		Short:         "Manage chess database entity indexes",
		Long:          "A command line for creating chess databases and editing their player, tournament, annotator, source, team and tag indexes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file")
	f.StringVar(&a.dataDir, "data-dir", "", "directory holding the databases (default ./files)")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	f.BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		newCreateDBCmd(a),
		newListDBsCmd(a),
		newAddCmd(a),
		newGetCmd(a),
		newFindCmd(a),
		newListCmd(a),
		newRenameCmd(a),
		newDeleteCmd(a),
		newValidateCmd(a),
		newStatsCmd(a),
		newSnapshotCmd(a),
		newSnapshotsCmd(a),
		newRestoreCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load resolves the configuration: file, then environment, then flags.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := config.ConfigureLoggingTo(cmd.ErrOrStderr(), cfg.LogLevel); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) dbPath(name string) string {
	return filepath.Join(a.cfg.DataDir, name)
}

// withDB opens the named database for the duration of fn.
func (a *app) withDB(name string, fn func(db *database.Database) error) (err error) {
	db, err := database.Load(a.dbPath(name), database.WithCacheSize(a.cfg.CacheSize))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(db)
}

// withIndex opens one text index of the named database for the duration of fn.
func (a *app) withIndex(name, kind string, fn func(ti database.TextIndex) error) error {
	k, err := database.ParseKind(kind)
	if err != nil {
		return err
	}
	return a.withDB(name, func(db *database.Database) error {
		ti, err := db.Index(k)
		if err != nil {
			return err
		}
		return fn(ti)
	})
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printRecords(w io.Writer, recs []database.Record) error {
	if a.jsonOutput {
		if recs == nil {
			recs = []database.Record{}
		}
		return a.printJSON(w, recs)
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\n", r.ID, r.Text)
	}
	return nil
}

func parseID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return int32(id), nil
}
