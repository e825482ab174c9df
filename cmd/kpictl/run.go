package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"kpijoin/adapters/excel"
	"kpijoin/adapters/postgres"
	"kpijoin/domain/table"
	"kpijoin/internal/dataset"
	"kpijoin/internal/errors"
	"kpijoin/internal/kpi"
	"kpijoin/internal/migration"
	"kpijoin/internal/report"
	"kpijoin/internal/testkit"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type analyzeOptions struct {
	file       string
	exportPath string
	reportPath string
	asJSON     bool
}

type joinOptions struct {
	fileA, fileB string
	keys         []string
	how          dataset.JoinType
	outPath      string
	preview      int
}

func runAnalyze(ctx context.Context, out io.Writer, opts analyzeOptions) error {
	t, err := loadFile(ctx, opts.file)
	if err != nil {
		return err
	}

	result, err := kpi.NewEngine().Analyze(t)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if opts.exportPath != "" {
		data, err := excel.ExportAnalysis(result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.exportPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
	}

	if opts.reportPath != "" {
		page, err := report.HTML(result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.reportPath, page, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"kpis":       result.KPIs,
			"chart_data": result.ChartData(),
			"category":   result.Category(),
			"tips":       result.Tips,
		})
	}

	md, err := report.Markdown(result)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, md)
	return err
}

func runJoin(ctx context.Context, out io.Writer, opts joinOptions) error {
	fa, err := os.Open(opts.fileA)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", opts.fileA, err)
	}
	defer fa.Close()

	fb, err := os.Open(opts.fileB)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", opts.fileB, err)
	}
	defer fb.Close()

	a, b, err := dataset.NewLoader().LoadPair(ctx,
		dataset.Upload{Filename: filepath.Base(opts.fileA), Reader: fa},
		dataset.Upload{Filename: filepath.Base(opts.fileB), Reader: fb})
	if err != nil {
		return err
	}

	joined, err := dataset.Join(a, b, opts.keys, opts.how)
	if err != nil {
		return err
	}

	if opts.outPath == "" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(joined.Preview(opts.preview))
	}

	if err := writeCSV(opts.outPath, joined); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d rows x %d columns to %s\n", joined.Len(), joined.Width(), opts.outPath)
	return nil
}

func runSample(out io.Writer, config testkit.SalesGeneratorConfig, paths []string) error {
	gen, err := testkit.NewSalesDataGenerator(config)
	if err != nil {
		return err
	}

	var tables []*table.Table
	if len(paths) == 1 {
		sales, err := gen.GenerateSales()
		if err != nil {
			return err
		}
		tables = append(tables, sales)
	} else {
		orders, terms, err := gen.GeneratePair()
		if err != nil {
			return err
		}
		tables = append(tables, orders, terms)
	}

	for i, t := range tables {
		if err := writeCSV(paths[i], t); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d rows x %d columns to %s\n", t.Len(), t.Width(), paths[i])
	}
	return nil
}

func runMigrate(ctx context.Context, out io.Writer, databaseURL string) error {
	db, err := connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return err
	}
	fmt.Fprintf(out, "Schema %s is up to date\n", runner.Version())
	return nil
}

func runListRuns(ctx context.Context, out io.Writer, databaseURL string, limit int) error {
	if limit <= 0 {
		return errors.InvalidInput("limit must be positive")
	}
	db, err := connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := postgres.NewRunRepository(db).ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSESSION TAG\tSOURCE\tROWS\tKPIS\tTIPS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.CreatedAt.Format(time.RFC3339), r.SessionTag, r.Source, r.RowCount, r.KPICount, r.TipCount)
	}
	return tw.Flush()
}

func loadFile(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return dataset.NewLoader().Load(ctx, dataset.Upload{Filename: filepath.Base(path), Reader: f})
}

func writeCSV(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := excel.WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func connect(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}
	return db, nil
}
