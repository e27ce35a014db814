package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/release"
)

// releasesCommand creates the "releases" command.
func (c *CLI) releasesCommand() *cobra.Command {
	var extra string

	cmd := &cobra.Command{
		Use:   "releases <package>",
		Short: "List the releases of a package",
		Long: `List the releases of a package across all configured repositories, newest first.

Prereleases are hidden unless --prereleases is given or no stable release exists.`,
		Example: `  reposolve releases requests
  reposolve releases black --prereleases
  reposolve releases mypkg --local ./dist --no-cache`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReleases(cmd.Context(), args[0], extra)
		},
	}

	cmd.Flags().StringVar(&extra, "extra", "", "extra the releases are requested under")
	return cmd
}

func (c *CLI) runReleases(ctx context.Context, name, extra string) error {
	if err := errs.ValidatePackageName(name); err != nil {
		return err
	}
	repo, backend, err := c.openRepository(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	sw := startStopwatch(c.Logger)
	var releases []release.Release
	err = c.spin(ctx, fmt.Sprintf("Fetching releases of %s", name), func() error {
		var err error
		releases, err = repo.Releases(ctx, release.Query{RawName: name, Extra: extra})
		return err
	})
	if err != nil {
		return err
	}

	if len(releases) == 0 {
		printWarning(c.out, "No releases of %s found in %s", name, repo.Name())
		return nil
	}
	printReleases(c.out, releases)
	sw.done("found releases", "package", name, "count", len(releases))
	return nil
}
