package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"etl-verify/internal/api"
	"etl-verify/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history, health and metrics over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		history, err := store.New(cfg.History.Path)
		if err != nil {
			return err
		}
		defer history.Close()

		listener, err := net.Listen("tcp", cfg.Server.Address)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Address, err)
		}
		return api.NewServer(cfg.Server.Address, history).Run(ctx, listener)
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides server.address)")
	_ = viper.BindPFlag("server.address", serveCmd.Flags().Lookup("addr"))
}
