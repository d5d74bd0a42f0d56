// Package check implements "apiservice check".
package check

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/broady/apiservice/internal/discover"
)

type Cmd struct {
	Package string `help:"Package to scan (default: current directory)." short:"p" default:"."`
	Dir     string `help:"Working directory for package resolution." short:"C" type:"existingdir"`
}

func (c *Cmd) Run() error {
	return c.run(os.Stdout)
}

func (c *Cmd) run(w io.Writer) error {
	result, err := discover.FindDir(c.Package, c.Dir)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	if len(result.Handlers) == 0 {
		return fmt.Errorf("no handler types found in %s", result.PackagePath)
	}

	fmt.Fprintf(w, "✓ Found %d handler types in %s\n", len(result.Handlers), result.PackagePath)
	for _, h := range result.Handlers {
		fmt.Fprintf(w, "  %s -> %s [%s] (%s)\n", h.TypeName, h.Service(), strings.Join(h.AcceptedVersions(), ", "), h.Pos)
	}

	conflicts := result.Conflicts()
	if len(conflicts) > 0 {
		for _, cf := range conflicts {
			fmt.Fprintf(w, "✗ %s is declared by %s\n", cf.Key, strings.Join(cf.Types, ", "))
		}
		return fmt.Errorf("%d duplicate service keys", len(conflicts))
	}

	fmt.Fprintf(w, "✓ %d service keys, no duplicates\n", len(result.Keys()))
	return nil
}
