package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
	"github.com/QuesmaOrg/demo-webr-ggplot/exec"
)

var (
	runWatch   bool
	runPlotDir string
	runUploads []string
	runFetch   []string
)

var runCmd = &cobra.Command{
	Use:   "run FILE...",
	Short: "Evaluate R files in one session",
	Long: `Evaluates each file in order in the same workspace and prints its output.
With --watch the command keeps running and re-evaluates a file whenever it is saved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFiles,
}

func init() {
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "re-run files when they change")
	runCmd.Flags().StringVar(&runPlotDir, "plots", "", "directory to write plots to")
	runCmd.Flags().StringSliceVarP(&runUploads, "upload", "u", nil, "local files to upload before running")
	runCmd.Flags().StringSliceVar(&runFetch, "fetch", nil, "source:name files to fetch before running")
}

func runFiles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	nb, cleanup, err := openNotebook(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	p := newPrinter(cmd.OutOrStdout(), runPlotDir)
	flushLog(nb, p)
	if err := uploadFiles(ctx, nb, runUploads); err != nil {
		return err
	}
	if err := fetchFiles(ctx, nb, runFetch); err != nil {
		return err
	}
	flushLog(nb, p)

	failed := false
	for _, path := range args {
		ok, err := runFile(ctx, nb, p, path)
		if err != nil {
			return err
		}
		failed = failed || !ok
	}

	if runWatch {
		p.Muted("watching %d file(s), press Ctrl+C to stop", len(args))
		return watchFiles(ctx, args, defaultDebounce, logger, func(path string) {
			if _, err := runFile(ctx, nb, p, path); err != nil {
				logger.Error("re-run failed", "file", path, "error", err)
			}
		})
	}
	if failed {
		return errRunFailed
	}
	return nil
}

// runFile evaluates one file and reports whether its code succeeded.
func runFile(ctx context.Context, nb *exec.Notebook, p *printer, path string) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	p.Muted("# %s", path)
	res, err := nb.Run(ctx, string(src))
	if err != nil {
		return false, err
	}
	p.Result(res)
	nb.ClearMessages()
	return res.OK(), nil
}

// flushLog prints and clears the notebook's console log.
func flushLog(nb *exec.Notebook, p *printer) {
	for _, msg := range nb.Messages() {
		p.Message(msg)
	}
	nb.ClearMessages()
}

func uploadFiles(ctx context.Context, nb *exec.Notebook, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := nb.Upload(ctx, filepath.Base(path), data); err != nil {
			return err
		}
	}
	return nil
}

func fetchFiles(ctx context.Context, nb *exec.Notebook, ids []string) error {
	for _, id := range ids {
		source, name, err := datasource.ParseFileID(id)
		if err != nil {
			return err
		}
		if _, err := nb.Fetch(ctx, source, name); err != nil {
			return err
		}
	}
	return nil
}
