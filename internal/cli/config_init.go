package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/splairdrop/internal/config"
)

// NewConfigInitCmd creates the config init command, which writes a
// configuration file holding the default values.
func NewConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Example: `  # Create ~/.splairdrop/config.yaml
  splairdrop config init

  # Overwrite an existing file
  splairdrop config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				def, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = def
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			cmd.Printf("Configuration initialized at %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().StringVar(&path, "path", "", "where to write the file (default $SPLAIRDROP_HOME/config.yaml)")

	return cmd
}

// NewConfigShowCmd creates the config show command, which prints the
// effective configuration after file, environment and flag overrides.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg := commandContext(cmd)
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
