package cmd

import (
	"github.com/spf13/cobra"

	"splitget/downloader"
	"splitget/internal"
	"splitget/utils"
)

func newCleanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [FILENAME]",
		Short: "Remove segments left behind by interrupted downloads",
		Long: `Remove the segment files and ledger kept for resuming a download.

With a file name only that download's state is removed; without one the
whole parts directory is deleted.

Examples:
  splitget clean image.iso
  splitget clean --dir /tmp`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filename string
			if len(args) > 0 {
				filename = utils.SanitizeFilename(args[0])
				if filename == "" {
					return internal.NewValidationErrorWithValue("filename", "not a usable file name", args[0])
				}
			}

			partsDir := downloader.ResolvePartsDir(opts.dir, opts.config.PartsDir)
			removed, err := downloader.Clean(partsDir, filename)
			if err != nil {
				return err
			}

			internal.LogDebug("Removed %d entries from %s", removed, partsDir)
			printer := utils.NewPrinter(cmd.OutOrStdout(), opts.config.QuietMode)
			if removed == 0 {
				printer.Info("Nothing to clean in %s", partsDir)
			} else {
				printer.Success("Removed %d file(s) from %s", removed, partsDir)
			}
			return nil
		},
	}
}
