package cli

import (
	"encoding/json"

	"fxrelay/internal/app"

	"github.com/spf13/cobra"
)

var demoJSON bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the price request and balance relay flows once on an in-memory bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Storage.Driver = "memory"
		cfg.Oracle.Pairs = nil
		app.ConfigureLogging(cfg.Logging.Level)

		a, err := app.Build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := app.RunDemo(cmd.Context(), a, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if demoJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		return nil
	},
}

func init() {
	demoCmd.Flags().BoolVar(&demoJSON, "json", false, "print the demo report as JSON")
}
