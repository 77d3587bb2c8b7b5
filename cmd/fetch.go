package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/permutor/internal/inputs"
	"github.com/smazurov/permutor/internal/logging"
)

// inputsShareURL is where the standard source files are published. It is a
// folder share, so --url must point at a mirror serving the files directly.
const inputsShareURL = "https://www.dropbox.com/sh/x08pkk47lc1v5ex/AADGaoOjOcA0-uPo7I0NaxL-a?dl=0"

// CreateFetchInputsCmd creates the fetch-inputs command. dir returns the
// --files-directory root option once it is parsed.
func CreateFetchInputsCmd(dir func() string) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "fetch-inputs",
		Short: "Download the standard benchmark source files",
		Long: "Downloads the standard benchmark source files missing from --files-directory.\n" +
			"The files are published at " + inputsShareURL + "\n" +
			"--url must be a base URL serving them by name.",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			target := dir()
			if target == "" {
				target = "."
			}
			fetcher := inputs.NewFetcher(logging.GetLogger("inputs"))
			fetcher.Progress = os.Stderr
			Exit(fetcher.Fetch(ctx, baseURL, target, inputs.Standard))
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Base URL the source files are downloaded from")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
