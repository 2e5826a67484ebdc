package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/journey-mapper/internal/model"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Look up CRM contacts",
}

var contactsSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search contacts by first name, last name, or email",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Source.SearchEntities(cmd.Context(), tenantFlag, strings.Join(args, " "))
		if err != nil {
			return err
		}
		formatContacts(cmd.OutOrStdout(), results)
		return nil
	},
}

// formatContacts writes search results as a table.
func formatContacts(out io.Writer, contacts []model.EntitySummary) {
	if len(contacts) == 0 {
		_, _ = fmt.Fprintln(out, "No contacts found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tSTAGE")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-----")
	for _, c := range contacts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.DisplayName(), c.Email, c.StageValue)
	}
	_ = w.Flush()
}

func init() {
	addTenantFlag(contactsSearchCmd)
	contactsCmd.AddCommand(contactsSearchCmd)
	rootCmd.AddCommand(contactsCmd)
}
