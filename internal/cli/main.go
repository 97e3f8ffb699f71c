package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vidtext <video> <output>",
		Short:        "Extract on-screen text from a video with OCR",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], args[1])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().Int("interval", 1, "OCR every nth frame")
	root.Flags().Bool("unique", false, "Keep only non-empty text that differs from the previous kept frame")
	root.Flags().Bool("no-progress", false, "Disable the progress bar")

	// Hidden OCR tuning flags
	root.Flags().String("lang", "", "Tesseract language (overrides TESSERACT_LANG)")
	root.Flags().Int("psm", 0, "Tesseract page segmentation mode (unset keeps the engine default)")
	_ = root.Flags().MarkHidden("lang")
	_ = root.Flags().MarkHidden("psm")

	return root
}
