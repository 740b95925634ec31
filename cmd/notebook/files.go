package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files offered by the configured data sources",
	Long: `Lists the files of every enabled data source as source:name IDs. Pass them
to "run --fetch" to copy them into the session before running code.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := buildSources(cfg)
		if err != nil {
			return err
		}
		defer sources.StopAll()

		files, err := datasource.NewCatalog(sources).ListAll(cmd.Context())
		if err != nil {
			return err
		}
		listFiles(cmd.OutOrStdout(), files)
		return nil
	},
}

func listFiles(out io.Writer, files []datasource.FileInfo) {
	if len(files) == 0 {
		fmt.Fprintln(out, "no files")
		return
	}
	for _, f := range files {
		fmt.Fprintf(out, "%-40s %10d\n", datasource.FormatFileID(f.Source, f.Name), f.Size)
	}
}
