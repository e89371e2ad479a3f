package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	smcp "github.com/deixis/shellrun/internal/mcp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var httpAddr string
	var instructions bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio by default)",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if instructions {
				return nil
			}
			return a.setup(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), smcp.Instructions)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := smcp.NewServer(a.cfg, a.newRunner(), a.logger)
			if httpAddr != "" {
				return serveHTTP(ctx, server, httpAddr, a.logger)
			}

			a.logger.Info().Msg("serving on stdio")
			if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on address (e.g. :9090) instead of stdio")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	return cmd
}

func serveHTTP(ctx context.Context, server *mcp.Server, addr string, logger zerolog.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
