package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pyshare <file.py>",
		Short: "Make an analysis script shareable by inlining its utils helpers",
		Long: `pyshare copies a Python script or notebook into a standalone file that
no longer imports the shared utilities module. Every referenced helper
function, and every helper it calls, is copied into the file ahead of its
first use and the imports of the utilities module are replaced by the
module's own imports.

Output is written to share/<name>_ext.py and formatted with ruff.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunShare,
	}

	// Shared by every command that loads a target.
	rootCmd.PersistentFlags().String(utilsPathFlagName, "", "path of the utilities module file, relative to the project root")
	rootCmd.PersistentFlags().String(utilsModuleFlagName, "", "dotted name the target imports the utilities module as")
	rootCmd.PersistentFlags().StringSlice(functionsFlagName, nil, "inlinable functions, in resolution order (default: config)")
	rootCmd.PersistentFlags().String(policyFlagName, "", "placement of inlined functions: auto|marker|import")
	rootCmd.PersistentFlags().Bool(verboseFlagName, false, "enable debug logging")

	rootCmd.Flags().String(outDirFlagName, "", "output directory, relative to the project root")
	rootCmd.Flags().Bool(noLintFlagName, false, "skip the lint and format pass")
	rootCmd.Flags().Bool(dryRunFlagName, false, "print what would be inlined without writing")
	rootCmd.Flags().Bool(diffFlagName, false, "print a unified diff of the target and the generated file")
	rootCmd.Flags().Bool(jsonFlagName, false, "print a machine-readable run summary")

	depsCmd := &cobra.Command{
		Use:   "deps <file.py>",
		Short: "Show which helpers a target uses and the order they are inlined in",
		Args:  cobra.ExactArgs(1),
		RunE:  RunDeps,
	}
	depsCmd.Flags().Bool(jsonFlagName, false, "print machine-readable dependency rows")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default pyshare.yaml to the current directory",
		Args:  cobra.NoArgs,
		RunE:  RunInit,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pyshare %s\n", version)
		},
	}

	rootCmd.AddCommand(
		depsCmd,
		initCmd,
		versionCmd,
	)

	return rootCmd
}
