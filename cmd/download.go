package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/loader"
)

var (
	crashesURL    string
	boundariesURL string
	forceDownload bool
)

// downloadCmd fetches the crash records and boundary files to their
// configured paths.
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the crash and boundary datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if crashesURL == "" {
			crashesURL = cfg.Download.CrashesURL
		}
		if boundariesURL == "" {
			boundariesURL = cfg.Download.BoundariesURL
		}
		if crashesURL == "" && boundariesURL == "" {
			return fmt.Errorf("nothing to download; set CRASHES_URL and BOUNDARIES_URL or pass --crashes-url/--boundaries-url")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d := &loader.Downloader{
			MaxElapsed: cfg.Download.Timeout,
			Log:        log.Component("download"),
		}
		jobs := []struct{ url, dest string }{
			{crashesURL, cfg.Data.CrashesPath},
			{boundariesURL, cfg.Data.BoundariesPath},
		}

		var downloaded, skipped int
		for _, j := range jobs {
			if j.url == "" {
				continue
			}
			if _, err := os.Stat(j.dest); err == nil && !forceDownload {
				log.WithField("dest", j.dest).Info("skip (already exists)")
				skipped++
				continue
			}
			if _, err := d.Fetch(ctx, j.url, j.dest); err != nil {
				return err
			}
			downloaded++
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Done: %d downloaded, %d skipped\n", downloaded, skipped)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&crashesURL, "crashes-url", "", "Crash records URL (default CRASHES_URL)")
	downloadCmd.Flags().StringVar(&boundariesURL, "boundaries-url", "", "Boundary GeoJSON URL (default BOUNDARIES_URL)")
	downloadCmd.Flags().BoolVar(&forceDownload, "force", false, "Download even when the file exists")
	rootCmd.AddCommand(downloadCmd)
}
