package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/gatehouse/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file without starting the service.

All validation errors are reported together, so a broken file can be fixed
in a single pass.

Examples:
  gatehouse validate
  gatehouse validate --config /etc/gatehouse/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			var verr config.ValidationError
			if errors.As(err, &verr) {
				fmt.Printf("✗ Configuration invalid (%d errors):\n", len(verr.Errors))
				for _, fieldErr := range verr.Errors {
					fmt.Printf("  - %s\n", fieldErr.Error())
				}
				return fmt.Errorf("validation failed")
			}
			return err
		}

		fmt.Println("✓ Configuration valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
