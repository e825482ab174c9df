package main

import (
	"fmt"
	"os"

	"kpijoin/internal/dataset"
	"kpijoin/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kpictl",
		Short:         "Join sales datasets and compute KPIs from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newJoinCmd(),
		newSampleCmd(),
		newMigrateCmd(),
		newRunsCmd(),
	)
	return rootCmd
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Compute KPIs, trend and tips for a CSV or XLSX file",
		Long: `Compute the KPI summary of one sales table.

Without flags the result is printed as a markdown report.

Example: kpictl analyze sales.csv --export kpi_analysis.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.file = args[0]
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.exportPath, "export", "", "Write the KPI workbook to this .xlsx path")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Write an HTML report to this path")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newJoinCmd() *cobra.Command {
	var opts joinOptions
	var how string

	cmd := &cobra.Command{
		Use:   "join [file-a] [file-b]",
		Short: "Join two CSV or XLSX files on shared key columns",
		Long: `Join two tables the way the web wizard does.

Example: kpictl join orders.csv terms.csv --on Order_ID --how left --out joined.csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jt, err := dataset.ParseJoinType(how)
			if err != nil {
				return err
			}
			opts.fileA, opts.fileB, opts.how = args[0], args[1], jt
			return runJoin(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.keys, "on", nil, "Key column(s); repeat or comma-separate")
	cmd.Flags().StringVar(&how, "how", string(dataset.InnerJoin), "Join type: inner|left|right|outer")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "Write the joined table as CSV to this path")
	cmd.Flags().IntVar(&opts.preview, "preview", 10, "Rows to print when --out is not given")
	_ = cmd.MarkFlagRequired("on")
	return cmd
}

func newSampleCmd() *cobra.Command {
	config := testkit.DefaultSalesConfig()

	cmd := &cobra.Command{
		Use:   "sample [out.csv] [terms.csv]",
		Short: "Generate deterministic sample sales data",
		Long: `Generate sample sales data. With one path a single table holding every
column is written; with two paths the orders and their terms are written as a
pair sharing Order_ID, ready for the join step.

Example: kpictl sample orders.csv terms.csv --rows 500 --seed 7`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd.OutOrStdout(), config, args)
		},
	}

	cmd.Flags().IntVar(&config.Rows, "rows", config.Rows, "Number of orders")
	cmd.Flags().IntVar(&config.Months, "months", config.Months, "Number of calendar months covered")
	cmd.Flags().Int64Var(&config.Seed, "seed", config.Seed, "Random seed for deterministic output")
	cmd.Flags().Float64Var(&config.MissingRate, "missing-rate", config.MissingRate, "Share of blank optional cells")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the analysis run ledger schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), databaseURL)
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var databaseURL string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the most recent analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListRuns(cmd.Context(), cmd.OutOrStdout(), databaseURL, limit)
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}
