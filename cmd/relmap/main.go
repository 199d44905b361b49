// Command relmap checks a relmap configuration against a database.
//
//	relmap -config relmap.yaml -validate
//
// It prints the dialect settings and the select statement of every table
// declaring joins, then connects to the configured database, if any, and
// checks that every declared table can be queried.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"slices"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/relmap/config"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/metrics"
	"github.com/syssam/relmap/schema"
)

func main() {
	configPath := flag.String("config", "relmap.yaml", "Path to configuration file")
	validate := flag.Bool("validate", false, "Validate the declared tables")
	debug := flag.Bool("debug", false, "Log every statement")
	flag.Parse()

	if err := run(context.Background(), os.Stdout, *configPath, *validate, *debug); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, w io.Writer, path string, validate, debug bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tables, err := cfg.Schema()
	if err != nil {
		return err
	}
	if validate {
		res := schema.ValidateSchema(sortedTables(tables))
		if res.HasErrors() || res.HasWarnings() {
			fmt.Fprintln(w, res.String())
		}
		if err := res.Err(); err != nil {
			return err
		}
	}
	d := cfg.SQLDialect()
	fmt.Fprintf(w, "dialect: %s\nbatch size: %d\nin operator max size: %d\n", d.Name, d.BatchSize, d.InOperatorMaxSize)
	for _, t := range cfg.Tables {
		if len(t.Joins) == 0 {
			continue
		}
		tr, err := buildTree(tables, cfg.Tables, t.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", t.Name, d.Rebind(tr.Query().String()))
	}
	if cfg.DSN == "" {
		return nil
	}
	return check(ctx, w, cfg, tables, debug)
}

// check connects to the database and queries every table.
func check(ctx context.Context, w io.Writer, cfg *config.Config, tables map[string]*schema.Table, debug bool) error {
	metrics.Init()
	opts := []sql.StatsOption{sql.WithSlowQueryLog(slog.Default())}
	if cfg.SlowThreshold > 0 {
		opts = append(opts, sql.WithSlowThreshold(cfg.SlowThreshold))
	}
	stats, _, err := sql.OpenWithStats(cfg.Dialect, cfg.DSN, opts...)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer stats.Close()
	drv := sql.Observe(stats.Driver, metrics.Observer())
	if debug {
		drv = sql.NewDebugDriver(drv, slog.Default())
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := drv.DB().PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	for _, t := range sortedTables(tables) {
		if err := checkTable(ctx, drv, t); err != nil {
			return err
		}
		fmt.Fprintf(w, "table %s: ok\n", t.AbsoluteName())
	}
	fmt.Fprintln(w, stats.QueryStats().Stats())
	return nil
}

// checkTable runs a select of every column of t returning no row.
func checkTable(ctx context.Context, drv *sql.Driver, t *schema.Table) (err error) {
	query := "select "
	for i, c := range t.Columns {
		if i > 0 {
			query += ", "
		}
		query += c.Name
	}
	query += " from " + t.AbsoluteName() + " where 1 = 0"
	rows := &sql.Rows{}
	if err := drv.Query(ctx, query, []any{}, rows); err != nil {
		return fmt.Errorf("table %s: %w", t.AbsoluteName(), err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return rows.Err()
}

func sortedTables(tables map[string]*schema.Table) []*schema.Table {
	out := make([]*schema.Table, 0, len(tables))
	for _, t := range tables {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *schema.Table) int {
		return cmp.Compare(a.AbsoluteName(), b.AbsoluteName())
	})
	return out
}
