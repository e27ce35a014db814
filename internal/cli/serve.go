package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/reposolve/pkg/indexserver"
	"github.com/matzehuels/reposolve/pkg/repository/local"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Serve a distribution directory as a package index",
		Long: `Serve a local directory of distributions through the PyPI JSON API.

Other reposolve instances can then use it with --index http://<addr>/pypi.`,
		Example: `  reposolve serve ./dist
  reposolve serve ./dist --addr :9000 --base-url https://mirror.example`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], addr, baseURL)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "external URL used in file links")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, dir, addr, baseURL string) error {
	repo, err := local.New(dir, local.WithLogger(c.Logger))
	if err != nil {
		return err
	}

	opts := []indexserver.Option{indexserver.WithLogger(c.Logger)}
	if baseURL != "" {
		opts = append(opts, indexserver.WithBaseURL(baseURL))
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           indexserver.New(repo, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	printSuccess(c.out, "Serving %s", repo.Root())
	printKeyValue(c.out, "Index", StyleLink.Render("http://"+addr+"/pypi"))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		c.Logger.Info("server stopped")
		return ctx.Err()
	}
}
