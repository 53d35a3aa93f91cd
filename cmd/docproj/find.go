package main

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/vinicius-lino-figueiredo/docproj"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/source"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

var errNoData = errors.New("no data source: set --data or --sqlite")

// findFlags are the flags of the find command. Only flags set by the user
// override the config.
type findFlags struct {
	data, sqlite, sql        string
	filter, projection, sort string
	skip, limit              int64
	allMatches               bool
	corruptAlertThreshold    float64
}

func (a *app) findCmd() *cobra.Command {
	var flags findFlags

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the projected documents matching a filter",
		Example: `  docproj find --data inventory.jsonl --filter '{"qty": {"$gt": 10}}' \
    --projection '{"sizes": {"$elemMatch": {"h": {"$gte": 10}}}}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyFlags(cmd, &flags)
			return a.runFind(cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.data, "data", "", "newline delimited extended JSON file, - for stdin")
	f.StringVar(&flags.sqlite, "sqlite", "", "SQLite database storing extended JSON documents")
	f.StringVar(&flags.sql, "sql", "", "query returning one extended JSON document per row")
	f.StringVar(&flags.filter, "filter", "", "filter as an extended JSON object")
	f.StringVar(&flags.projection, "projection", "", "projection as an extended JSON object")
	f.StringVar(&flags.sort, "sort", "", `sort as an extended JSON object, like {"a": 1, "b": -1}`)
	f.Int64Var(&flags.skip, "skip", 0, "number of documents to skip")
	f.Int64Var(&flags.limit, "limit", 0, "maximum number of documents, 0 for no limit")
	f.BoolVar(&flags.allMatches, "all-matches", false, "keep every element matched by $elemMatch")
	f.Float64Var(&flags.corruptAlertThreshold, "corrupt-threshold", 0, "share of unreadable lines tolerated, 0 to fail on the first one")
	return cmd
}

func (a *app) applyFlags(cmd *cobra.Command, flags *findFlags) {
	f := cmd.Flags()
	if f.Changed("data") {
		a.cfg.Data = flags.data
	}
	if f.Changed("sqlite") {
		a.cfg.SQLite = flags.sqlite
	}
	if f.Changed("sql") {
		a.cfg.SQL = flags.sql
	}
	if f.Changed("filter") {
		a.cfg.Filter = flags.filter
	}
	if f.Changed("projection") {
		a.cfg.Projection = flags.projection
	}
	if f.Changed("sort") {
		a.cfg.Sort = flags.sort
	}
	if f.Changed("skip") {
		a.cfg.Skip = flags.skip
	}
	if f.Changed("limit") {
		a.cfg.Limit = flags.limit
	}
	if f.Changed("all-matches") {
		a.cfg.AllMatches = flags.allMatches
	}
	if f.Changed("corrupt-threshold") {
		a.cfg.CorruptAlertThreshold = flags.corruptAlertThreshold
	}
}

func (a *app) runFind(cmd *cobra.Command) error {
	ctx := cmd.Context()

	filter, err := parseObject("filter", a.cfg.Filter)
	if err != nil {
		return err
	}
	projection, err := parseObject("projection", a.cfg.Projection)
	if err != nil {
		return err
	}
	sort, err := parseSort(a.cfg.Sort)
	if err != nil {
		return err
	}

	src, closeSrc, err := a.openSource(cmd)
	if err != nil {
		return err
	}
	defer closeSrc()

	opts := []docproj.FindOption{
		docproj.WithSkip(a.cfg.Skip),
		docproj.WithLimit(a.cfg.Limit),
	}
	if projection != nil {
		opts = append(opts, docproj.WithProjection(projection))
	}
	if sort != nil {
		opts = append(opts, docproj.WithSort(sort))
	}

	engine := docproj.New(
		docproj.WithAllMatches(a.cfg.AllMatches),
		docproj.WithLogger(a.logger),
	)
	seq, err := engine.Iter(ctx, src, filter, opts...)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	defer w.Flush()

	var count int
	for doc, err := range seq {
		if err != nil {
			return err
		}
		b, err := data.ToExtJSON(doc)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
		count++
	}
	a.logger.Debug("find finished", zap.Int("results", count))
	return nil
}

// openSource returns the configured source and a function releasing it.
func (a *app) openSource(cmd *cobra.Command) (domain.Source, func(), error) {
	switch {
	case a.cfg.SQLite != "":
		db, err := sql.Open("sqlite", a.cfg.SQLite)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return source.NewSQL(db, a.cfg.SQL), func() { _ = db.Close() }, nil
	case a.cfg.Data == "-":
		return source.NewReader(cmd.InOrStdin(), a.readerOptions()...), func() {}, nil
	case a.cfg.Data != "":
		return source.NewFile(a.cfg.Data, a.readerOptions()...), func() {}, nil
	default:
		return nil, nil, errNoData
	}
}

func (a *app) readerOptions() []source.ReaderOption {
	return []source.ReaderOption{
		source.WithCorruptAlertThreshold(a.cfg.CorruptAlertThreshold),
		source.WithReaderLogger(a.logger),
	}
}

// parseObject decodes an extended JSON object given on the command line. An
// empty string gives nil.
func parseObject(name, s string) (domain.Document, error) {
	if s == "" {
		return nil, nil
	}
	doc, err := data.FromExtJSON([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return doc, nil
}

// parseSort reads a sort object, keeping its key order.
func parseSort(s string) (docproj.Sort, error) {
	doc, err := parseObject("sort", s)
	if err != nil || doc == nil {
		return nil, err
	}
	sort := make(docproj.Sort, 0, doc.Len())
	for k, v := range doc.Iter() {
		var order int64
		switch n := v.(type) {
		case int32:
			order = int64(n)
		case int64:
			order = n
		case float64:
			order = int64(n)
		default:
			return nil, fmt.Errorf("parsing sort: order of %q must be a number, got %T", k, v)
		}
		if order == 0 {
			return nil, fmt.Errorf("parsing sort: order of %q must be 1 or -1", k)
		}
		sort = append(sort, docproj.SortName{Key: k, Order: order})
	}
	return sort, nil
}
