package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/gpacalc/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	serveAddr        string
	serveMaxUploadMB int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /api/calc over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		maxMB := c.MaxUploadMB
		if cmd.Flags().Changed("max-upload-mb") && serveMaxUploadMB > 0 {
			maxMB = serveMaxUploadMB
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		srv := server.New(server.Options{
			MaxUploadBytes: int64(maxMB) << 20,
			UploadDir:      c.UploadDir,
			AllowedOrigins: c.CORSAllowedOrigins,
			RateLimitRPS:   c.RateLimitRPS,
			RateLimitBurst: c.RateLimitBurst,
			Registry:       reg,
		}, c.CalcOptions(), logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx, addr, server.Timeouts{
			Read:     time.Duration(c.ReadTimeoutSec) * time.Second,
			Write:    time.Duration(c.WriteTimeoutSec) * time.Second,
			Shutdown: time.Duration(c.ShutdownTimeoutSec) * time.Second,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address (overrides config)")
	serveCmd.Flags().IntVar(&serveMaxUploadMB, "max-upload-mb", 0, "upload size cap in MiB (overrides config)")
}
