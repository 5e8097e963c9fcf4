package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mhurbridge/pkg/config"
	"mhurbridge/pkg/mapping"
)

var rulesFormat string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective parameter mapping rules",
	Long: "Prints the rule tables the bridge would use: the configured rules file when set, " +
		"otherwise the built-in defaults. The output is a valid rules file.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		rules, err := effectiveRules(cfg)
		if err != nil {
			return err
		}
		return writeRules(cmd.OutOrStdout(), rules, mapping.Format(rulesFormat))
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVarP(&rulesFormat, "format", "f", string(mapping.FormatTOML), "output format: toml or yaml")
}

func effectiveRules(cfg *config.Config) (mapping.Rules, error) {
	if cfg.Mapping.RulesFile == "" {
		return mapping.DefaultRules(), nil
	}
	return mapping.LoadRules(cfg.Mapping.RulesFile)
}

func writeRules(w io.Writer, rules mapping.Rules, format mapping.Format) error {
	content, err := rules.Encode(format)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
