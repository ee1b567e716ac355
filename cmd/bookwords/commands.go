package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/book-fanout/pkg/fanout"
	"github.com/Sternrassler/book-fanout/pkg/report"
)

func newRunCmd(opts *options, lookupEnv func(string) (string, bool)) *cobra.Command {
	var (
		bins    int
		perItem bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one dispatch cycle and print a word count report",
		Example: `  bookwords run --isbns isbns.txt
  bookwords run --isbns isbns.txt --mode batched --batch-size 20 --workers 8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, opts, lookupEnv)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.runner.Run(cmd.Context(), a.items)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if perItem {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for i, id := range a.items {
					fmt.Fprintf(w, "%s\t%d\n", id, results[i])
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}

			buckets, err := report.Histogram(results, bins)
			if err != nil {
				return err
			}
			return report.Render(out, report.Summarize(results), buckets)
		},
	}

	cmd.Flags().IntVar(&bins, "histogram-bins", 8, "number of histogram buckets")
	cmd.Flags().BoolVar(&perItem, "per-item", false, "print the count for every ISBN")
	return cmd
}

func newCompareCmd(opts *options, lookupEnv func(string) (string, bool)) *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Run serial, parallel and batched cycles over the same ISBNs and compare timings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, opts, lookupEnv)
			if err != nil {
				return err
			}
			defer a.Close()

			cycles := a.runner.Compare(cmd.Context(), a.items)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODE\tITEMS\tUNITS\tBATCH\tDURATION\tSTATUS")
			failed := 0
			for _, c := range cycles {
				status := "ok"
				if c.Err != nil {
					status = c.Err.Error()
					failed++
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n", c.Mode, c.Items, c.Units, c.BatchSize, c.Duration.Round(time.Millisecond), status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if err := fanout.Consistent(cycles); err != nil {
				return err
			}
			if failed == len(cycles) {
				return fmt.Errorf("all %d cycles failed", failed)
			}
			return nil
		},
	}
}
