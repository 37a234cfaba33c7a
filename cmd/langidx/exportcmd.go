package main

import (
	"os"

	"github.com/spf13/cobra"

	"langidx/internal/export"
)

var (
	exportOutput   string
	exportCompress bool
	exportOutline  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the symbol snapshot as a SCIP index",
	Long: `Writes the latest snapshot as a SCIP index that other code-intelligence
tools can load. The output path defaults to export.path in the config,
relative to the scratch directory.

Examples:
  langidx export
  langidx export --output=index.scip --compress
  langidx export --outline`,
	Args: cobra.NoArgs,
	Run:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output path (default: export.path in the scratch directory)")
	exportCmd.Flags().BoolVar(&exportCompress, "compress", false, "Compress the index with zstd")
	exportCmd.Flags().BoolVar(&exportOutline, "outline", false, "Print a per-file symbol outline")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := loadConfig(root)
	logger := newLogger(cfg)

	snap := loadSnapshot(newContext(), root, cfg, logger)

	path := exportOutput
	if path == "" {
		path = cfg.ResolveInScratch(root, cfg.Export.Path)
	}
	compress := exportCompress || cfg.Export.Compress

	idx, stats, err := export.NewExporter(logger).Export(snap, export.Options{
		ProjectRoot: root,
		Compress:    compress,
		Arguments:   os.Args[1:],
	})
	if err != nil {
		fail(err)
	}

	n, err := export.WriteFile(path, idx, compress)
	if err != nil {
		fail(err)
	}
	stats.Bytes = n
	stats.Compressed = compress

	resp := &ExportResponseCLI{
		Path:        path,
		Stats:       *stats,
		Directories: export.Summarize(idx),
	}
	if exportOutline {
		resp.Outline = export.FormatText(idx)
	}
	printResponse(resp)
}
