package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/biopass/internal/camera"
	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/utils"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:         "probe",
	Short:       "Try each camera backend in order and report which one works",
	Annotations: map[string]string{skipDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runProbe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(ctx context.Context) error {
	src, err := newSource(&frame.Cell{})
	if err != nil {
		utils.ShowError("Invalid camera backend list", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "📷 Probing camera backends...")
	attempts, err := src.Probe(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tOPENED\tWARM FRAMES\tRESULT")
	fmt.Fprintln(w, "-------\t------\t-----------\t------")
	for _, a := range attempts {
		result := "✅ accepted"
		if !a.Accepted() {
			result = "❌"
			if a.Err != nil {
				result += " " + a.Err.Error()
			}
		}
		fmt.Fprintf(w, "%s\t%v\t%d\t%s\n", a.Backend, a.Opened, a.WarmFrames, result)
	}
	w.Flush()

	if err != nil {
		if errors.Is(err, camera.ErrNoCameraAvailable) {
			fmt.Println("❌ Camera error: not detected")
		}
		return err
	}
	return nil
}
