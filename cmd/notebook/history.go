package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/QuesmaOrg/demo-webr-ggplot/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [ID]",
	Short: "Show recorded runs",
	Long:  `Lists recent runs, newest first. With an ID, prints the code and output of that run.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.History.Enabled {
			return errors.New("history is disabled")
		}
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRun(out, newPrinter(out, ""), run)
			return nil
		}

		runs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		listRuns(out, runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
}

func listRuns(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return
	}
	for _, run := range runs {
		status := "ok"
		if !run.Success {
			status = "failed"
		}
		fmt.Fprintf(out, "%s  %s  %-6s  %6d ms  %s\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"), run.ID, status,
			run.Duration.Milliseconds(), firstLine(run.Code))
	}
}

func printRun(out io.Writer, p *printer, run history.Run) {
	fmt.Fprintln(out, run.Code)
	fmt.Fprintln(out)
	for _, msg := range run.Messages {
		p.Message(msg)
	}
}

func firstLine(src string) string {
	line, rest, _ := strings.Cut(strings.TrimSpace(src), "\n")
	if rest != "" {
		return line + " ..."
	}
	return line
}
