package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arthur-debert/pipestore/query"
	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/types"
	"github.com/spf13/cobra"
)

// whereExpr matches "[and|or] field op value". The operator is a single
// token except for "not in".
var whereExpr = regexp.MustCompile(`(?i)^\s*(?:(and|or)\s+)?(\S+)\s+(not\s+in|\S+)\s+(.*)$`)

type condition struct {
	Comb  types.Combinator
	Key   string
	Op    string
	Value any
}

// parseWhere reads one --where expression such as `score >= 80` or
// `or team in ["red","blue"]`.
func parseWhere(expr string) (condition, error) {
	m := whereExpr.FindStringSubmatch(expr)
	if m == nil {
		return condition{}, NewValidationError("parse filter", "where expression", expr,
			`Use the form "field op value", e.g. --where "score >= 80"`,
			`Prefix with "or" to join with OR: --where "or team = blue"`)
	}
	comb := types.And
	if strings.EqualFold(m[1], "or") {
		comb = types.Or
	}
	op, ok := query.NormalizeOperator(m[3])
	if !ok {
		return condition{}, NewValidationError("parse filter", "operator", m[3],
			"Operators: = == != <> > >= < <= in, not in, match, between")
	}
	return condition{Comb: comb, Key: m[2], Op: op, Value: parseValue(m[4])}, nil
}

// parseValue reads a JSON literal, falling back to the raw text so that
// `name = Ann` works without quotes.
func parseValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if v, err := record.DecodeJSON([]byte(raw)); err == nil {
		return v
	}
	return raw
}

// parseSort reads "field" or "field:dir".
func parseSort(spec string) (string, types.Direction, error) {
	key, dir, found := strings.Cut(spec, ":")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", NewValidationError("parse sort", "sort", spec, `Use --sort "field" or --sort "field:desc"`)
	}
	if !found {
		return key, types.Asc, nil
	}
	d, ok := types.ParseDirection(dir)
	if !ok {
		return "", "", NewValidationError("parse sort", "sort direction", dir, "Use asc or desc")
	}
	return key, d, nil
}

// parseAssignments turns k=v pairs into a record. Dotted keys build
// nested values.
func parseAssignments(pairs []string) (*record.Map, error) {
	fields := record.New()
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, NewValidationError("parse fields", "assignment", pair, `Use --set "field=value"`)
		}
		fields.Set(key, parseValue(raw))
	}
	return fields, nil
}

// queryFlags holds the pipeline flags shared by read and write commands.
type queryFlags struct {
	where   []string
	sort    []string
	skip    int
	take    int
	columns []string
}

func addFilterFlags(cmd *cobra.Command, qf *queryFlags) {
	cmd.Flags().StringArrayVarP(&qf.where, "where", "w", nil, `Filter expression, e.g. "score >= 80" or "or team = blue" (repeatable)`)
}

func addQueryFlags(cmd *cobra.Command, qf *queryFlags) {
	addFilterFlags(cmd, qf)
	cmd.Flags().StringArrayVarP(&qf.sort, "sort", "s", nil, `Sort by "field[:asc|desc]" (repeatable, last wins)`)
	cmd.Flags().IntVar(&qf.skip, "skip", 0, "Skip the first N records")
	cmd.Flags().IntVar(&qf.take, "take", -1, "Return at most N records")
	cmd.Flags().StringSliceVar(&qf.columns, "select", nil, `Columns to return, "field" or "field:alias"`)
}

// apply appends the flag pipeline to q.
func (qf *queryFlags) apply(q *query.Builder) (*query.Builder, error) {
	for _, expr := range qf.where {
		c, err := parseWhere(expr)
		if err != nil {
			return nil, err
		}
		if c.Comb == types.Or {
			q = q.OrWhere(c.Key, c.Op, c.Value)
		} else {
			q = q.Where(c.Key, c.Op, c.Value)
		}
	}
	for _, spec := range qf.sort {
		key, dir, err := parseSort(spec)
		if err != nil {
			return nil, err
		}
		q = q.SortBy(key, dir)
	}
	if qf.skip > 0 {
		q = q.Skip(qf.skip)
	}
	if qf.take >= 0 {
		q = q.Take(qf.take)
	}
	return q, q.Err()
}

func describeConditions(where []string) string {
	if len(where) == 0 {
		return "all records"
	}
	return strconv.Quote(strings.Join(where, " "))
}

func fieldsOrFail(op string, fields *record.Map) error {
	if fields.Len() == 0 {
		return NewValidationError(op, "fields", "", `Pass at least one --set "field=value"`)
	}
	return nil
}

func wantArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return fmt.Errorf("%s requires at least %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}
