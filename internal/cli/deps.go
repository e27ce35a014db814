package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/release"
)

// depsCommand creates the "deps" command.
func (c *CLI) depsCommand() *cobra.Command {
	var extra string

	cmd := &cobra.Command{
		Use:   "deps <package> [version]",
		Short: "Show the dependencies of a release",
		Long: `Show the requirements a release declares, filtered by the requested extra.

Without a version the newest release is used. Requirements whose markers
depend on the Python environment are listed with their markers.`,
		Example: `  reposolve deps requests 2.31.0
  reposolve deps requests 2.31.0 --extra socks
  reposolve deps mypkg --local ./dist`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			return c.runDeps(cmd.Context(), args[0], version, extra)
		},
	}

	cmd.Flags().StringVar(&extra, "extra", "", "extra to include dependencies for")
	return cmd
}

func (c *CLI) runDeps(ctx context.Context, name, version, extra string) error {
	if err := errs.ValidatePackageName(name); err != nil {
		return err
	}
	repo, backend, err := c.openRepository(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	if version == "" {
		var releases []release.Release
		err := c.spin(ctx, fmt.Sprintf("Fetching releases of %s", name), func() error {
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
		version = releases[0].Version.String()
	}

	sw := startStopwatch(c.Logger)
	reqs, err := repo.Dependencies(ctx, name, version, extra)
	if err != nil {
		return err
	}

	title := name + " " + version
	if extra != "" {
		title = fmt.Sprintf("%s[%s] %s", name, extra, version)
	}
	fmt.Fprintln(c.out, StyleTitle.Render(title))
	if len(reqs) == 0 {
		printInfo(c.out, "No dependencies")
		return nil
	}
	printRequirements(c.out, reqs)
	sw.done("read requirements", "package", name, "version", version, "count", len(reqs))
	return nil
}
