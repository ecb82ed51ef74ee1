package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/lockstep/internal/printer"
	"github.com/dyluth/lockstep/internal/scaffold"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example federation",
	Long: `Create an example two-federate federation in the current directory.

Creates:
  • federation.yml - Federation file listing the federates
  • fom.yml - Object model shared by the federates
  • federates/plane.yml - A regulating federate publishing a Plane
  • federates/tower.yml - A constrained federate subscribing to it

Use --force to reinitialize an existing project (WARNING: destroys existing configuration).`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (removes existing federation.yml, fom.yml and federates/)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check for existing files (unless --force)
	if !forceInit {
		if err := scaffold.CheckExisting(); err != nil {
			return printer.Error("project already initialized", strings.TrimPrefix(err.Error(), "project already initialized\n\n"), nil)
		}
	}

	if err := scaffold.Initialize(forceInit); err != nil {
		return printer.Error("initialization failed", err.Error(), nil)
	}

	scaffold.PrintSuccess()
	return nil
}
