package dbcli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Yarin78/morphy-sub004/database"
)

const kindsHelp = "kind is one of players, tournaments, annotators, sources, teams, tags"

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <db> <kind> <text>",
		Short: "Add an entity",
		Long:  "Add an entity to one of the indexes of a database.\n" + kindsHelp,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(args[0], args[1], func(ti database.TextIndex) error {
				rec, err := ti.Add(args[2])
				if err != nil {
					return err
				}
				return a.printRecords(cmd.OutOrStdout(), []database.Record{rec})
			})
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <db> <kind> <id>",
		Short: "Show the entity with an id",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[2])
			if err != nil {
				return err
			}
			return a.withIndex(args[0], args[1], func(ti database.TextIndex) error {
				rec, ok, err := ti.Get(id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s %d not found", args[1], id)
				}
				return a.printRecords(cmd.OutOrStdout(), []database.Record{rec})
			})
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <db> <kind> <text>",
		Short: "Show every entity with a key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(args[0], args[1], func(ti database.TextIndex) error {
				recs, err := ti.Find(args[2])
				if err != nil {
					return err
				}
				return a.printRecords(cmd.OutOrStdout(), recs)
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		from  string
		desc  bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list <db> <kind>",
		Short: "List entities in key order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(args[0], args[1], func(ti database.TextIndex) error {
				recs, err := ti.List(from, desc, limit)
				if err != nil {
					return err
				}
				return a.printRecords(cmd.OutOrStdout(), recs)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start at this key")
	cmd.Flags().BoolVar(&desc, "desc", false, "list in descending order")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entities, 0 for all")
	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <db> <kind> <id> <text>",
		Short: "Change the key of an entity, keeping its id",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[2])
			if err != nil {
				return err
			}
			return a.withIndex(args[0], args[1], func(ti database.TextIndex) error {
				rec, err := ti.Rename(id, args[3])
				if err != nil {
					return err
				}
				return a.printRecords(cmd.OutOrStdout(), []database.Record{rec})
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <db> <kind> <id>",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[2])
			if err != nil {
				return err
			}
			return a.withIndex(args[0], args[1], func(ti database.TextIndex) error {
				ok, err := ti.Delete(id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s %d not found", args[1], id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %d\n", args[1], id)
				return nil
			})
		},
	}
}
