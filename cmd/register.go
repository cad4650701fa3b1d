package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/biopass/internal/enroll"
	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/utils"
	"github.com/spf13/cobra"
)

var (
	registerImage   string
	registerTimeout time.Duration
	registerSave    string
)

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Enroll a person from the camera or a photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runRegister(cmd.Context(), args[0])
	},
}

func init() {
	registerCmd.Flags().StringVarP(&registerImage, "image", "i", "", "Enroll from a photo instead of the camera")
	registerCmd.Flags().DurationVar(&registerTimeout, "camera-timeout", 15*time.Second, "How long to wait for the camera")
	registerCmd.Flags().StringVar(&registerSave, "save-thumbnail", "", "Write the stored face thumbnail to this path")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(ctx context.Context, name string) error {
	f, err := inputFrame(ctx, registerImage, registerTimeout)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
	models := loadModels()
	defer models.Close()

	pub, closePub := newPublisher()
	defer closePub()

	// The one-shot command only needs the new entry, not the whole cache.
	ctrl := newController(&frame.Cell{}, models, enroll.NewCache(), pub)
	e, err := ctrl.RegisterFrame(ctx, name, f)
	if err != nil {
		fmt.Printf("❌ Registration failed: %v\n", err)
		return err
	}

	fmt.Printf("✅ Registered '%s' (id %d)\n", e.Name, e.UserID)
	if registerSave != "" {
		if err := os.MkdirAll(filepath.Dir(registerSave), 0755); err != nil {
			utils.ShowError("Failed to create thumbnail directory", err, nil)
			return err
		}
		if err := os.WriteFile(registerSave, e.Thumbnail, 0644); err != nil {
			utils.ShowError("Failed to save thumbnail", err, nil)
			return err
		}
		fmt.Printf("🖼️  Thumbnail saved to %s\n", registerSave)
	}
	return nil
}

// inputFrame reads a photo when path is set and otherwise grabs a live frame.
func inputFrame(ctx context.Context, path string, timeout time.Duration) (frame.Frame, error) {
	if path == "" {
		f, err := captureFrame(ctx, timeout)
		if err != nil {
			utils.ShowError("Failed to capture a frame", err, nil)
		}
		return f, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		utils.ShowError("Input file does not exist", err, nil)
		return frame.Frame{}, err
	}
	f, err := frameFromFile(path)
	if err != nil {
		utils.ShowError("Failed to read image file", err, nil)
	}
	return f, err
}
