package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/arthur-debert/pipestore/export"
	"github.com/arthur-debert/pipestore/query"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/store"
	"github.com/spf13/cobra"
)

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.getCommand(),
		cli.firstCommand(),
		cli.findCommand(),
		cli.countCommand(),
		cli.statsCommand(),
		cli.insertCommand(),
		cli.updateCommand(),
		cli.deleteCommand(),
		cli.truncateCommand(),
		cli.exportCommand(),
		cli.restoreCommand(),
		cli.migrateCommand(),
	)
}

// withQuery opens the named collection, applies the flag pipeline and
// hands the builder to fn.
func (cli *CLI) withQuery(name string, qf *queryFlags, fn func(s *store.Store, q *query.Builder) error) error {
	s, err := cli.openCollection(name)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	q, err := qf.apply(s.Query())
	if err != nil {
		return WrapError("build query on "+name, err)
	}
	cli.logger.Debug("query", "collection", name, "where", describeConditions(qf.where))
	return fn(s, q)
}

func (cli *CLI) getCommand() *cobra.Command {
	qf := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "get <collection>",
		Short: "List records matching the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withQuery(args[0], qf, func(_ *store.Store, q *query.Builder) error {
				recs, err := q.Get(qf.columns...)
				if err != nil {
					return WrapError("query "+args[0], err)
				}
				return cli.output(cmd, recs)
			})
		},
	}
	addQueryFlags(cmd, qf)
	return cmd
}

func (cli *CLI) firstCommand() *cobra.Command {
	qf := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "first <collection>",
		Short: "Show the first record matching the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withQuery(args[0], qf, func(_ *store.Store, q *query.Builder) error {
				rec, err := q.First(qf.columns...)
				if err != nil {
					return WrapError("query "+args[0], err)
				}
				return cli.output(cmd, rec)
			})
		},
	}
	addQueryFlags(cmd, qf)
	return cmd
}

func (cli *CLI) findCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <collection> <id>",
		Short: "Show the record stored under an identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.openCollection(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			rec, err := s.Find(args[1])
			if err != nil {
				return WrapError("find in "+args[0], err)
			}
			if rec == nil {
				return &CLIError{
					Operation:   "find in " + args[0],
					Cause:       fmt.Sprintf("no record with id %q", args[1]),
					Suggestions: []string{"List identifiers with: pipestore get " + args[0] + " --select _id"},
				}
			}
			return cli.output(cmd, rec)
		},
	}
}

func (cli *CLI) countCommand() *cobra.Command {
	qf := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "count <collection>",
		Short: "Count records matching the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withQuery(args[0], qf, func(_ *store.Store, q *query.Builder) error {
				n, err := q.Count()
				if err != nil {
					return WrapError("count "+args[0], err)
				}
				return cli.output(cmd, n)
			})
		},
	}
	addQueryFlags(cmd, qf)
	return cmd
}

func (cli *CLI) statsCommand() *cobra.Command {
	qf := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "stats <collection> <field>",
		Short: "Show count, sum, average, minimum and maximum of a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := args[1]
			return cli.withQuery(args[0], qf, func(_ *store.Store, q *query.Builder) error {
				stats := record.New()
				n, err := q.Count()
				if err != nil {
					return WrapError("stats "+args[0], err)
				}
				stats.Set("field", field)
				stats.Set("count", n)
				sum, err := q.Sum(field)
				if err != nil {
					return WrapError("stats "+args[0], err)
				}
				stats.Set("sum", sum)
				avg, err := q.Avg(field)
				if err != nil {
					return WrapError("stats "+args[0], err)
				}
				stats.Set("avg", avg)
				lowest, err := q.Min(field)
				if err != nil {
					return WrapError("stats "+args[0], err)
				}
				stats.Set("min", lowest)
				highest, err := q.Max(field)
				if err != nil {
					return WrapError("stats "+args[0], err)
				}
				stats.Set("max", highest)
				return cli.output(cmd, stats)
			})
		},
	}
	addQueryFlags(cmd, qf)
	return cmd
}

func (cli *CLI) insertCommand() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "insert <collection> [json-object]",
		Short: "Insert a record",
		Long: `Insert a record built from an optional JSON object plus --set assignments.
An identifier is generated unless the record carries an _id.

  pipestore insert people '{"name":"Ann","score":80}' --set team=red`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := record.New()
			if len(args) == 2 {
				if err := fields.UnmarshalJSON([]byte(args[1])); err != nil {
					return &CLIError{
						Operation:   "insert into " + args[0],
						Cause:       "the record is not a JSON object",
						Details:     err.Error(),
						Suggestions: []string{`Quote the object: '{"name":"Ann"}'`},
					}
				}
			}
			assigned, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			assignments := record.Access(fields)
			assigned.Range(func(k string, v any) bool {
				assignments.Set(k, v, true)
				return true
			})

			s, err := cli.openCollection(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			rec, err := s.Insert(fields)
			if err != nil {
				return WrapError("insert into "+args[0], err)
			}
			if rec == nil {
				return &CLIError{Operation: "insert into " + args[0], Cause: "the collection file could not be written"}
			}
			return cli.output(cmd, rec)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, `Field assignment "field=value" (repeatable)`)
	return cmd
}

func (cli *CLI) updateCommand() *cobra.Command {
	qf := &queryFlags{}
	var sets []string
	cmd := &cobra.Command{
		Use:   "update <collection>",
		Short: "Set fields on every record matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			if err := fieldsOrFail("update "+args[0], fields); err != nil {
				return err
			}
			return cli.withQuery(args[0], qf, func(_ *store.Store, q *query.Builder) error {
				n, err := q.Update(fields)
				if err != nil {
					return WrapError("update "+args[0], err)
				}
				cli.logger.Info("updated records", "collection", args[0], "count", n)
				return cli.output(cmd, n)
			})
		},
	}
	addFilterFlags(cmd, qf)
	qf.take = -1
	cmd.Flags().StringArrayVar(&sets, "set", nil, `Field assignment "field=value" (repeatable)`)
	return cmd
}

func (cli *CLI) deleteCommand() *cobra.Command {
	qf := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "delete <collection>",
		Short: "Delete every record matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(qf.where) == 0 {
				return &CLIError{
					Operation:   "delete from " + args[0],
					Cause:       "no filter given",
					Suggestions: []string{"Use truncate to remove every record"},
				}
			}
			return cli.withQuery(args[0], qf, func(_ *store.Store, q *query.Builder) error {
				n, err := q.Delete()
				if err != nil {
					return WrapError("delete from "+args[0], err)
				}
				cli.logger.Info("deleted records", "collection", args[0], "count", n)
				return cli.output(cmd, n)
			})
		},
	}
	addFilterFlags(cmd, qf)
	qf.take = -1
	return cmd
}

func (cli *CLI) truncateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "truncate <collection>",
		Short: "Remove every record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.openCollection(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			ok, err := s.Truncate()
			if err != nil {
				return WrapError("truncate "+args[0], err)
			}
			if !ok {
				return &CLIError{Operation: "truncate " + args[0], Cause: "the collection file could not be written"}
			}
			return cli.output(cmd, 0)
		},
	}
}

func (cli *CLI) exportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <collection>...",
		Short: "Write collections to a zip archive",
		Args:  wantArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores := make([]*store.Store, 0, len(args))
			defer func() {
				for _, s := range stores {
					_ = s.Close()
				}
			}()
			for _, name := range args {
				s, err := cli.openCollection(name)
				if err != nil {
					return err
				}
				stores = append(stores, s)
			}

			now := time.Now()
			archive, err := export.Collect(now, stores...)
			if err != nil {
				return WrapError("export", err)
			}
			if out == "" {
				out = filepath.Join(cli.viperInst.GetString("dir"), export.ArchiveFilename(args, now))
			}
			if err := export.WriteFile(archive, out); err != nil {
				return WrapError("export", err)
			}
			cli.logger.Info("exported collections", "archive", out, "collections", args)
			return cli.output(cmd, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Archive path (default: generated name in --dir)")
	return cmd
}

func (cli *CLI) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive>",
		Short: "Replace collections in --dir with the content of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := export.ReadFile(args[0])
			if err != nil {
				return &CLIError{
					Operation:  "restore " + args[0],
					Cause:      "not a pipestore archive",
					Details:    err.Error(),
					Underlying: err,
				}
			}
			stores, err := export.Restore(archive, cli.viperInst.GetString("dir"), cli.storeOptionFuncs()...)
			for _, s := range stores {
				_ = s.Close()
			}
			if err != nil {
				return WrapError("restore "+args[0], err)
			}

			summary := make([]*record.Map, 0, len(archive.Collections))
			for _, c := range archive.Collections {
				summary = append(summary, record.FromPairs("collection", c.Name, "documents", c.Documents.Len()))
			}
			return cli.output(cmd, summary)
		},
	}
}
