package cli

import (
	"fmt"

	"github.com/pyshare-dev/pyshare/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	utilsPathFlagName   = "utils"
	utilsModuleFlagName = "module"
	functionsFlagName   = "functions"
	policyFlagName      = "policy"
	outDirFlagName      = "out-dir"
	verboseFlagName     = "verbose"
	noLintFlagName      = "no-lint"
	dryRunFlagName      = "dry-run"
	diffFlagName        = "diff"
	jsonFlagName        = "json"
)

// flagConfigKeys maps flags to the config keys they override.
var flagConfigKeys = map[string]string{
	utilsPathFlagName:   config.UtilsPathKey,
	utilsModuleFlagName: config.UtilsModuleKey,
	functionsFlagName:   config.UtilsFunctionsKey,
	policyFlagName:      config.SplicePolicyKey,
	outDirFlagName:      config.OutputDirKey,
}

// bindFlagsToConfig wires the command's flags to viper keys so a flag set on
// the command line wins over config and env values.
func bindFlagsToConfig(cmd *cobra.Command, v *viper.Viper) error {
	for name, key := range flagConfigKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := bindFlagToConfig(v, flag, key); err != nil {
			return err
		}
	}
	return nil
}

func bindFlagToConfig(v *viper.Viper, flag *pflag.Flag, key string) error {
	if err := v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("failed to bind --%s to %s: %w", flag.Name, key, err)
	}
	return nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}
