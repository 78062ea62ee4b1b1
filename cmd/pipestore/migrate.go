package main

import (
	"fmt"

	"github.com/arthur-debert/pipestore/query"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/store"
	"github.com/arthur-debert/pipestore/types"
	"github.com/spf13/cobra"
)

// migrateCommand groups field operations that rewrite a whole collection
// through a map-and-save pipeline.
func (cli *CLI) migrateCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Field operations across every record of a collection",
		Long:  "Rename, remove or add fields in all records of a collection. Use --dry-run to see how many records would change.",
	}
	cmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Report how many records would change without writing")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "rename-field <collection> <old-name> <new-name>",
			Short: "Rename a field in every record that has it",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				oldName, newName := args[1], args[2]
				if err := mutableField("rename-field", oldName, newName); err != nil {
					return err
				}
				return cli.migrate(cmd, args[0], dryRun, hasField(oldName, true), func(rec *record.Map) *record.Map {
					a := record.Access(rec)
					value := a.Get(oldName)
					a.Remove(oldName)
					a.Set(newName, value, true)
					return rec
				})
			},
		},
		&cobra.Command{
			Use:   "remove-field <collection> <field>",
			Short: "Remove a field from every record",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				field := args[1]
				if err := mutableField("remove-field", field); err != nil {
					return err
				}
				return cli.migrate(cmd, args[0], dryRun, hasField(field, true), func(rec *record.Map) *record.Map {
					record.Access(rec).Remove(field)
					return rec
				})
			},
		},
		&cobra.Command{
			Use:   "add-field <collection> <field> <default>",
			Short: "Set a field on every record that lacks it",
			Long:  "The default is read as JSON when possible, otherwise as a plain string.",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				field, value := args[1], parseValue(args[2])
				if err := mutableField("add-field", field); err != nil {
					return err
				}
				return cli.migrate(cmd, args[0], dryRun, hasField(field, false), func(rec *record.Map) *record.Map {
					record.Access(rec).Set(field, value, false)
					return rec
				})
			},
		},
	)
	return cmd
}

// migrate saves fn's result for every record accepted by pred and prints
// the number of records written, or that would be written on a dry run.
func (cli *CLI) migrate(cmd *cobra.Command, name string, dryRun bool, pred func(*record.Map) bool, fn func(*record.Map) *record.Map) error {
	return cli.withQuery(name, &queryFlags{take: -1}, func(_ *store.Store, q *query.Builder) error {
		q = q.WhereFunc(pred)
		if dryRun {
			n, err := q.Count()
			if err != nil {
				return WrapError(cmd.Name()+" "+name, err)
			}
			return cli.output(cmd, n)
		}
		n, err := q.Map(fn).Save()
		if err != nil {
			return WrapError(cmd.Name()+" "+name, err)
		}
		cli.logger.Info("migrated records", "collection", name, "operation", cmd.Name(), "count", n)
		return cli.output(cmd, n)
	})
}

func hasField(path string, want bool) func(*record.Map) bool {
	return func(rec *record.Map) bool {
		return record.Access(rec).Has(path) == want
	}
}

// mutableField rejects the identifier field, which names the record.
func mutableField(op string, fields ...string) error {
	for _, f := range fields {
		if f == "" || f == types.IDField {
			return NewValidationError(op, "field", f, fmt.Sprintf("%s cannot be renamed, removed or added", types.IDField))
		}
	}
	return nil
}
