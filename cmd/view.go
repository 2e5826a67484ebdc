package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/journey"
	"github.com/sells-group/journey-mapper/internal/tui"
	"github.com/sells-group/journey-mapper/internal/visual"
)

var (
	viewContact string
	viewActive  []string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Explore a tenant's bowtie interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		var active []bowtie.ID
		for _, a := range viewActive {
			if id, ok := bowtie.Parse(strings.TrimSpace(a)); ok {
				active = append(active, id)
			}
		}

		opts := []journey.Option{journey.WithMachine(visual.New(visual.WithActive(active...)))}
		if viewContact != "" {
			opts = append(opts, journey.WithContact(viewContact))
		}
		sess := journey.New(tenantFlag, env.Engine, env.Source, opts...)
		defer sess.Close()

		return tui.Run(cmd.Context(), sess)
	},
}

func init() {
	addTenantFlag(viewCmd)
	viewCmd.Flags().StringVar(&viewContact, "contact", "", "contact id to place on the bowtie")
	viewCmd.Flags().StringSliceVar(&viewActive, "active", nil, "initially active stages (default trap2,trap3)")
	rootCmd.AddCommand(viewCmd)
}
