package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/andresmejia3/biopass/internal/camera"
	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/kiosk"
	"github.com/andresmejia3/biopass/internal/utils"
	"github.com/spf13/cobra"
)

var (
	httpAddr string
	noHTTP   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the access kiosk: camera, status display and web controls",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if cmd.Flags().Changed("http") {
			Cfg.HTTPAddr = httpAddr
		}
		return runKiosk(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&httpAddr, "http", ":8080", "Address for the kiosk web controls")
	runCmd.Flags().BoolVar(&noHTTP, "no-http", false, "Disable the web controls")
	rootCmd.AddCommand(runCmd)
}

func runKiosk(ctx context.Context) error {
	fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
	models := loadModels()
	defer models.Close()
	if !models.Available() {
		fmt.Fprintln(os.Stderr, "⚠️  Face models unavailable. Register and Login will fail until they are installed.")
	}

	cache, err := loadCache(ctx, models)
	if err != nil {
		utils.ShowError("Failed to load enrolled users", err, nil)
		return err
	}

	pub, closePub := newPublisher()
	defer closePub()

	cell := &frame.Cell{}
	src, err := newSource(cell)
	if err != nil {
		utils.ShowError("Invalid camera backend list", err, nil)
		return err
	}

	ctrl := newController(cell, models, cache, pub)
	k := kiosk.New(kiosk.Options{
		Frames:   cell,
		Flows:    ctrl,
		Camera:   src,
		Renderer: &kiosk.TerminalRenderer{W: os.Stdout},
		Enrolled: cache.Len,
		Interval: Cfg.RedrawInterval,
		Log:      Log,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// A missing camera leaves the kiosk up with an error status.
		if err := src.Run(ctx); errors.Is(err, camera.ErrNoCameraAvailable) {
			Log.Error("camera unavailable", "attempts", len(src.Attempts()))
		}
	}()
	go func() {
		defer wg.Done()
		_ = k.Run(ctx)
	}()

	var srv *kiosk.Server
	if !noHTTP && Cfg.HTTPAddr != "" {
		srv = kiosk.NewServer(k, Cfg.HTTPAddr)
		go func() {
			if err := srv.Start(); err != nil {
				Log.Error("web controls stopped", "error", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "🌐 Web controls on http://%s\n", displayAddr(Cfg.HTTPAddr))
	}

	<-ctx.Done()
	fmt.Fprintln(os.Stderr, "\n🛑 Shutting down...")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			Log.Warn("web controls shutdown", "error", err)
		}
	}
	wg.Wait()
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
