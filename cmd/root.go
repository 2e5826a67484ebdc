package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "journey-mapper",
	Short: "Map CRM lifecycle stages onto the bowtie customer journey",
	Long:  "Reads a tenant's lifecycle stages from HubSpot or Salesforce, classifies them onto the six bowtie stages with an LLM, caches the mapping, and shows where a contact sits in the journey.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// tenantFlag is shared by the tenant-scoped commands.
var tenantFlag string

func addTenantFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "tenant (HubSpot portal) id")
	_ = cmd.MarkFlagRequired("tenant")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
