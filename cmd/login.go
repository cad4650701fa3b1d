package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/biopass/internal/match"
	"github.com/spf13/cobra"
)

var (
	loginImage   string
	loginTimeout time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Identify the person in front of the camera or in a photo",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runLogin(cmd.Context())
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginImage, "image", "i", "", "Identify a photo instead of the camera")
	loginCmd.Flags().DurationVar(&loginTimeout, "camera-timeout", 15*time.Second, "How long to wait for the camera")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(ctx context.Context) error {
	fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
	models := loadModels()
	defer models.Close()

	cache, err := loadCache(ctx, models)
	if err != nil {
		return err
	}

	f, err := inputFrame(ctx, loginImage, loginTimeout)
	if err != nil {
		return err
	}

	pub, closePub := newPublisher()
	defer closePub()

	fmt.Fprintln(os.Stderr, "🔍 Analyzing face...")
	res, err := newController(nil, models, cache, pub).IdentifyFrame(ctx, f)
	if err != nil {
		fmt.Printf("❌ Login failed: %v\n", err)
		return err
	}

	switch res.Outcome {
	case match.Accepted:
		fmt.Printf("✅ Welcome, %s (score %.4f)\n", res.Name, res.Score)
	case match.Unknown:
		fmt.Printf("⛔ Unknown face (best score %.4f, need %.3f)\n", res.Score, Cfg.MatchThreshold)
	case match.CacheEmpty:
		fmt.Println("📭 Nobody is enrolled yet. Run 'biopass register <name>' first.")
	}
	return nil
}
