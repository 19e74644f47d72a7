package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/embruze/SexualEqualityABM-1/internal/archive"
	"github.com/embruze/SexualEqualityABM-1/internal/config"
	"github.com/embruze/SexualEqualityABM-1/internal/pathutil"
	"github.com/embruze/SexualEqualityABM-1/internal/store"
)

// openResultsStore opens the results database in the configured data directory.
func openResultsStore(cmd *cobra.Command, cfg *config.SmdConfig) (*store.SQLiteStore, string, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, "", err
	}
	s, err := store.Open(cmd.Context(), store.DBPath(dataDir))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open results store: %w", err)
	}
	return s, dataDir, nil
}

// confineArchivePath resolves path and rejects it unless it lies in the
// archive directory or the working directory.
func confineArchivePath(path, archiveDir string) (string, error) {
	roots, err := pathutil.ArchiveRoots(archiveDir)
	if err != nil {
		return "", err
	}
	resolved, err := pathutil.Confine(path, roots)
	if err != nil {
		return "", fmt.Errorf("archive path rejected: %w", err)
	}
	return resolved, nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a stored run to a compressed archive",
		Long: `Export a run, its baseline and every stored pass to a checksummed,
gzip-compressed archive.

Default location: ~/.smdsim/exports/smdsim-run-YYYYMMDD-HHMMSS-<id>.smd.gz
Keeps the newest archive of each of the last 10 exported runs by default;
older exports of the same run are replaced. Archives of runs deleted from the
store are never pruned. See store.retention in the config.

Examples:
  smdsim results export 6f1c0c1e-3a4b-4c8e-9d2f-2b7f6f0a9e11
  smdsim results export 6f1c0c1e-3a4b-4c8e-9d2f-2b7f6f0a9e11 --output run.smd.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, dataDir, err := openResultsStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			archiveDir := archive.DefaultDir(dataDir)
			outputPath, _ := cmd.Flags().GetString("output")
			if outputPath == "" {
				outputPath = archive.GeneratePath(archiveDir, args[0])
			} else if outputPath, err = confineArchivePath(outputPath, archiveDir); err != nil {
				return err
			}

			header, err := archive.Export(cmd.Context(), s, args[0], outputPath)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			retention, err := cfg.Store.Retention.Retention()
			if err != nil {
				return err
			}
			deleted, err := archive.ApplyRetention(cmd.Context(), archiveDir, retention, s)
			if err != nil {
				newLogger(cmd, cfg).Warn("failed to apply archive retention", "error", err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"path":    outputPath,
					"header":  header,
					"pruned":  len(deleted),
					"message": fmt.Sprintf("Exported run %s: %d rows, %d points", header.RunID, header.Rows, header.Points),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported run %s: %d rows, %d points\n", header.RunID, header.Rows, header.Points)
			fmt.Fprintf(cmd.OutOrStdout(), "  Path: %s\n", outputPath)
			if len(deleted) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  Pruned %d old archives\n", len(deleted))
			}
			return nil
		},
	}

	cmd.Flags().String("output", "", "Output file path (default: auto-generated in ~/.smdsim/exports/)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a run archive into the results store",
		Long: `Import a run exported with 'smdsim results export'. The archive checksum is
verified first, and a run whose ID is already stored is rejected.

Examples:
  smdsim results import ~/.smdsim/exports/smdsim-run-20260206-120000-6f1c0c1e.smd.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, dataDir, err := openResultsStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			path, err := confineArchivePath(args[0], archive.DefaultDir(dataDir))
			if err != nil {
				return err
			}

			result, err := archive.Import(cmd.Context(), s, path)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported run %s: %d rows, %d points\n", result.RunID, result.RowsImported, result.Points)
			return nil
		},
	}
}

func newArchivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archives",
		Short: "List exported run archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dataDir, err := cfg.DataDir()
			if err != nil {
				return err
			}

			archives, err := archive.List(archive.DefaultDir(dataDir))
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				if archives == nil {
					archives = []archive.Info{}
				}
				return writeJSON(cmd.OutOrStdout(), archives)
			}
			if len(archives) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archives.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "RUN\tSIZE\tCREATED\tPATH")
			for _, a := range archives {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.RunID, humanize.Bytes(uint64(a.Size)), a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Path)
			}
			return tw.Flush()
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify the checksum of a run archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := archive.VerifyChecksum(args[0]); err != nil {
				return fmt.Errorf("verification failed for %s: %w", pathutil.Redact(args[0]), err)
			}
			header, err := archive.ReadHeader(args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"valid": true, "header": header})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archive OK: run %s (%s), %d rows, %d points\n", header.RunID, header.Name, header.Rows, header.Points)
			return nil
		},
	}
}
