package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/reconcile"
)

var (
	mappingCached bool
	mappingFormat string
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Show or regenerate a tenant's stage mapping",
}

var mappingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Resolve the mapping, generating it if nothing usable is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMapping(cmd, false)
	},
}

var mappingRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Ask the classifier for a new mapping and replace the stored one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMapping(cmd, true)
	},
}

func runMapping(cmd *cobra.Command, regenerate bool) error {
	ctx := cmd.Context()
	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	stages, err := env.Source.ListSourceStages(ctx, tenantFlag)
	if err != nil {
		return err
	}

	var res *mapping.Resolution
	switch {
	case regenerate:
		res, err = env.Engine.Regenerate(ctx, tenantFlag, stages)
	case mappingCached:
		res, err = env.Engine.Lookup(ctx, tenantFlag, stages)
		if err == nil && res == nil {
			return eris.Errorf("no usable stored mapping for tenant %s", tenantFlag)
		}
	default:
		res, err = env.Engine.Resolve(ctx, tenantFlag, stages)
	}
	if res == nil {
		return err
	}
	if err != nil {
		// Fresh mapping that could not be stored.
		zap.L().Warn("mapping not persisted", zap.String("tenant_id", tenantFlag), zap.Error(err))
	}

	return writeMapping(cmd.OutOrStdout(), mappingFormat, res, stages)
}

type mappingDoc struct {
	TenantID string                 `json:"tenant_id" yaml:"tenant_id"`
	Source   mapping.Source         `json:"source" yaml:"source"`
	Mapping  map[string]bowtie.ID   `json:"mapping" yaml:"mapping"`
	Stages   map[bowtie.ID][]string `json:"stages" yaml:"stages"`
	Dropped  []mapping.Drop         `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// writeMapping renders a resolution as a table, JSON, or YAML.
func writeMapping(out io.Writer, format string, res *mapping.Resolution, stages []model.SourceStage) error {
	grouping := reconcile.GroupByTarget(res.Mapping)
	format = strings.ToLower(format)
	switch format {
	case "json", "yaml":
		doc := mappingDoc{
			TenantID: res.TenantID,
			Source:   res.Source,
			Mapping:  res.Mapping,
			Stages:   grouping,
			Dropped:  res.Dropped,
		}
		if format == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(doc), "encode mapping json")
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return eris.Wrap(err, "encode mapping yaml")
		}
		return eris.Wrap(enc.Close(), "encode mapping yaml")
	case "", "table":
		labels := reconcile.LabelsFor(grouping, stages)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "Tenant %s (%s)\n\n", res.TenantID, res.Source)
		_, _ = fmt.Fprintln(w, "STAGE\tNAME\tCRM STAGES")
		_, _ = fmt.Fprintln(w, "-----\t----\t----------")
		for _, st := range bowtie.Stages() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", st.ID, st.Name, strings.Join(labels[st.ID], ", "))
		}
		if len(res.Dropped) > 0 {
			_, _ = fmt.Fprintf(w, "\n%d classifier entries dropped\n", len(res.Dropped))
		}
		return eris.Wrap(w.Flush(), "write mapping table")
	default:
		return eris.Errorf("unsupported format %q (table, json, yaml)", format)
	}
}

func init() {
	for _, c := range []*cobra.Command{mappingShowCmd, mappingRegenerateCmd} {
		addTenantFlag(c)
		c.Flags().StringVar(&mappingFormat, "format", "table", "output format: table, json, yaml")
		mappingCmd.AddCommand(c)
	}
	mappingShowCmd.Flags().BoolVar(&mappingCached, "cached", false, "only read the stored mapping, never call the classifier")
	rootCmd.AddCommand(mappingCmd)
}
