package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/openscreen/internal/strategyconfig"
)

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect screening profiles",
}

var (
	profileValidateCmd = &cobra.Command{
		Use:   "validate <file.yaml>",
		Short: "Validate a profile and print its hash and warnings",
		Args:  cobra.ExactArgs(1),
		RunE:  validateProfile,
	}

	profileShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective profile as YAML",
		RunE:  showProfile,
	}
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileValidateCmd)
	profileCmd.AddCommand(profileShowCmd)
}

func validateProfile(cmd *cobra.Command, args []string) error {
	cfg, _, err := strategyconfig.Load(args[0])
	if err != nil {
		return err
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("%s is valid", args[0]))
	PrintKeyValue(out, "Profile", cfg.Meta.ProfileID+" v"+cfg.Meta.Version, 8)
	PrintKeyValue(out, "Mode", cfg.Screening.Mode, 8)
	PrintKeyValue(out, "Hash", hash, 8)

	for _, w := range strategyconfig.Warn(cfg) {
		PrintWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}

func showProfile(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	data, err := strategyconfig.Marshal(a.profile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# profile_hash: %s\n", a.snapshot.ProfileHash)
	_, err = out.Write(data)
	return err
}
