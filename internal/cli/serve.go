package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/attune-oss/attune/internal/server"
)

var (
	servePort  int
	serveHost  string
	serveLocal string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attune API server",
	Long: `Start the HTTP API server: streaming chat over SSE, conversation and
agent management, and the memory subsystem.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (overrides config)")
	serveCmd.Flags().StringVar(&serveLocal, "local-user", "", "run in single-user mode as this user id (skips identity headers)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Credentials live in .env during development; absence is fine.
	_ = godotenv.Load()

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if servePort > 0 {
		rt.cfg.Server.Port = servePort
	}
	if serveHost != "" {
		rt.cfg.Server.Host = serveHost
	}

	var auth server.Authenticator
	if serveLocal != "" {
		auth = &server.StaticAuthenticator{UserID: serveLocal}
	}

	srv := server.New(rt.cfg, rt.store, rt.memory, rt.orch, auth, rt.logger, rt.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	addr := rt.cfg.Server.Addr()
	fmt.Printf("attune listening on http://%s\n", addr)
	return srv.Start(ctx, addr)
}
