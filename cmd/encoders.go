package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smazurov/permutor/internal/encoders"
	"github.com/smazurov/permutor/internal/gpus"
	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/report"
)

// CreateListEncodersCmd creates the list-encoders command.
func CreateListEncodersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-encoders",
		Short: "List supported encoders and what this ffmpeg build offers",
		Run: func(cmd *cobra.Command, _ []string) {
			Exit(listEncoders(cmd.Context()))
		},
	}
}

func listEncoders(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !encoders.IsFFmpegInstalled() {
		return errors.New("ffmpeg not found in PATH")
	}

	hardware, err := encoders.ListHardware(ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderEncoders(encoders.Supported(), hardware))

	devices, err := gpus.List(ctx)
	if err != nil {
		logging.GetLogger("main").Warn("Failed to list GPUs", "error", err)
		return nil
	}
	if len(devices) > 0 {
		rows := make([][]string, 0, len(devices))
		for _, g := range devices {
			rows = append(rows, []string{strconv.Itoa(g.Index), g.Name, g.UUID})
		}
		fmt.Println(report.Table([]string{"GPU", "Name", "UUID"}, rows, 0))
	}
	return nil
}

// renderEncoders lists every supported encoder and whether ffmpeg was built
// with it.
func renderEncoders(supported []string, hardware []encoders.Encoder) string {
	rows := make([][]string, 0, len(supported))
	for _, name := range supported {
		compiled := "no"
		description := ""
		idx := slices.IndexFunc(hardware, func(e encoders.Encoder) bool { return e.Name == name })
		if idx >= 0 {
			compiled = "yes"
			description = hardware[idx].Description
		}
		rows = append(rows, []string{
			name,
			encoders.VendorForEncoder(name).String(),
			compiled,
			description,
		})
	}
	return report.Table([]string{"Encoder", "Vendor", "In ffmpeg", "Description"}, rows)
}

// CreateValidateEncodersCmd creates the validate-encoders command. gpu
// returns the --gpu root option once it is parsed.
func CreateValidateEncodersCmd(gpu func() int) *cobra.Command {
	var (
		output string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "validate-encoders",
		Short: "Validate hardware encoder availability",
		Long:  `Runs a short test encode with every supported encoder to find the ones that actually work on this system.`,
		Run: func(cmd *cobra.Command, _ []string) {
			Exit(validateEncoders(cmd.Context(), gpu(), output, quiet))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "validated_encoders.toml", "Output file for validation results")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress detailed validation progress output")
	return cmd
}

func validateEncoders(ctx context.Context, gpu int, output string, quiet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !encoders.IsFFmpegInstalled() {
		return errors.New("ffmpeg not found in PATH")
	}

	logger := logging.GetLogger("encoders")
	if quiet {
		logger = slog.New(slog.DiscardHandler)
	}
	results := encoders.NewValidator(logger, gpu).ValidateAll(ctx, encoders.Supported())

	if err := encoders.SaveValidationResults(output, results); err != nil {
		return err
	}
	if !quiet {
		encoders.PrintValidationSummary(results)
	}
	fmt.Fprintf(os.Stdout, "Results written to %s\n", output)
	return nil
}
