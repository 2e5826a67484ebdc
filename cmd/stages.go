package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/journey-mapper/internal/model"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List a tenant's lifecycle stages as read from the CRM",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stages, err := env.Source.ListSourceStages(cmd.Context(), tenantFlag)
		if err != nil {
			return err
		}
		formatStages(cmd.OutOrStdout(), stages)
		return nil
	},
}

// formatStages writes the stage catalog as a table.
func formatStages(out io.Writer, stages []model.SourceStage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VALUE\tLABEL\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "-----\t-----\t-----------")
	for _, s := range stages {
		desc := s.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Value, s.Label, desc)
	}
	_ = w.Flush()
}

func init() {
	addTenantFlag(stagesCmd)
	rootCmd.AddCommand(stagesCmd)
}
