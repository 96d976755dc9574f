package cli

import (
	"fmt"
	"path/filepath"

	"github.com/pyshare-dev/pyshare/internal/config"
	"github.com/pyshare-dev/pyshare/internal/fileutil"
	"github.com/spf13/cobra"
)

func RunInit(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}

	data, err := config.Marshal(config.Default())
	if err != nil {
		return err
	}

	path := filepath.Join(rootPath, config.FileName)
	if err := fileutil.WriteIfMissing(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}
