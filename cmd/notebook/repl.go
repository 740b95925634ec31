package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var replPlotDir string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Evaluate code blocks read from stdin",
	Long: `Reads code from stdin and evaluates it block by block. Blocks are separated
by a blank line, so multi-line expressions can be entered as one block.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		nb, cleanup, err := openNotebook(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		p := newPrinter(cmd.OutOrStdout(), replPlotDir)
		flushLog(nb, p)
		return readBlocks(cmd.InOrStdin(), func(block string) error {
			res, err := nb.Run(ctx, block)
			if err != nil {
				return err
			}
			p.Result(res)
			nb.ClearMessages()
			return nil
		})
	},
}

func init() {
	replCmd.Flags().StringVar(&replPlotDir, "plots", "", "directory to write plots to")
}

// readBlocks calls fn for every non-blank block of r. Blocks end at a blank
// line or at the end of input.
func readBlocks(r io.Reader, fn func(block string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lines []string
	flush := func() error {
		block := strings.Join(lines, "\n")
		lines = lines[:0]
		if strings.TrimSpace(block) == "" {
			return nil
		}
		return fn(block)
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return flush()
}
