package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/config"
	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/source"
	"github.com/sells-group/journey-mapper/internal/store"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"serve", "stages", "mapping", "contacts", "view"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "journey-mapper", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestTenantScopedCommands_RequireTenant(t *testing.T) {
	for _, c := range []string{"stages", "view"} {
		cmd, _, err := rootCmd.Find([]string{c})
		require.NoError(t, err)
		flag := cmd.Flags().Lookup("tenant")
		require.NotNil(t, flag, "%s should have --tenant", c)
		assert.Contains(t, flag.Annotations, "cobra_annotation_bash_completion_one_required_flag")
	}
}

func TestMappingCommand_Flags(t *testing.T) {
	assert.NotNil(t, mappingShowCmd.Flags().Lookup("cached"))
	assert.Nil(t, mappingRegenerateCmd.Flags().Lookup("cached"))
	assert.Equal(t, "table", mappingShowCmd.Flags().Lookup("format").DefValue)
	assert.NotNil(t, viewCmd.Flags().Lookup("contact"))
}

var testStages = []model.SourceStage{
	{Value: "subscriber", Label: "Subscriber"},
	{Value: "lead", Label: "Lead", Description: "Filled out a form"},
	{Value: "customer", Label: "Customer"},
}

var testResolution = &mapping.Resolution{
	TenantID: "portal-1",
	Source:   mapping.SourceGenerated,
	Mapping:  model.StageMapping{"subscriber": bowtie.Attract, "lead": bowtie.Attract, "customer": bowtie.Activate},
}

func TestWriteMapping_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMapping(&buf, "table", testResolution, testStages))
	out := buf.String()
	assert.Contains(t, out, "Tenant portal-1 (generated)")
	assert.Contains(t, out, "Subscriber, Lead")
	assert.Contains(t, out, "Activate")
}

func TestWriteMapping_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMapping(&buf, "json", testResolution, testStages))

	var doc mappingDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "portal-1", doc.TenantID)
	assert.Equal(t, []string{"lead", "subscriber"}, doc.Stages[bowtie.Attract])
	assert.Empty(t, doc.Stages[bowtie.Expand])
}

func TestWriteMapping_FormatCaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMapping(&buf, "JSON", testResolution, testStages))

	var doc mappingDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "portal-1", doc.TenantID)
}

func TestWriteMapping_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMapping(&buf, "yaml", testResolution, testStages))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "generated", doc["source"])
	assert.Equal(t, "trap4", doc["mapping"].(map[string]any)["customer"])
}

func TestWriteMapping_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeMapping(&buf, "xml", testResolution, testStages))
}

func TestFormatStages(t *testing.T) {
	var buf bytes.Buffer
	formatStages(&buf, testStages)
	assert.Contains(t, buf.String(), "VALUE")
	assert.Contains(t, buf.String(), "Filled out a form")
}

func TestFormatContacts(t *testing.T) {
	var buf bytes.Buffer
	formatContacts(&buf, nil)
	assert.Contains(t, buf.String(), "No contacts found.")

	buf.Reset()
	formatContacts(&buf, []model.EntitySummary{{ID: "c-1", FirstName: "Ada", Email: "ada@example.com", StageValue: "lead"}})
	assert.Contains(t, buf.String(), "Ada")
	assert.Contains(t, buf.String(), "ada@example.com")
}

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitEnv_MemoryHubSpotAnthropic(t *testing.T) {
	withConfig(t, &config.Config{
		Store:      config.StoreConfig{Driver: "memory"},
		Source:     config.SourceConfig{Provider: "hubspot"},
		HubSpot:    config.HubSpotConfig{BaseURL: "http://localhost", Property: "lifecyclestage", RateLimit: 5, TimeoutSecs: 5},
		Auth:       config.AuthConfig{StaticToken: "pat-123"},
		Classifier: config.ClassifierConfig{Provider: "anthropic", TimeoutSecs: 10, Temperature: 0.3},
		Anthropic:  config.AnthropicConfig{Key: "sk-test", Model: "claude-haiku-4-5-20251001", MaxTokens: 512},
		Mapping:    config.MappingConfig{CachePolicy: "full"},
	})

	env, err := initEnv(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.IsType(t, &store.MemoryStore{}, env.Store)
	assert.IsType(t, &source.HubSpot{}, env.Source)
	assert.NotNil(t, env.Engine)
}

func TestInitEnv_MissingCredentials(t *testing.T) {
	withConfig(t, &config.Config{
		Store:      config.StoreConfig{Driver: "memory"},
		Source:     config.SourceConfig{Provider: "hubspot"},
		Classifier: config.ClassifierConfig{Provider: "openai"},
	})
	_, err := initEnv(context.Background())
	assert.Error(t, err)
}

func TestInitClassifier_OpenAI(t *testing.T) {
	withConfig(t, &config.Config{
		Classifier: config.ClassifierConfig{Provider: "openai", TimeoutSecs: 5},
		OpenAI:     config.OpenAIConfig{Key: "sk-test", Model: "gpt-4o", BaseURL: "http://localhost/v1"},
	})
	cl, err := initClassifier()
	require.NoError(t, err)
	assert.NotNil(t, cl)
}

func TestInitStore_SQLite(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: t.TempDir() + "/journey.db"}})
	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
}

func TestInitStore_Unsupported(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "mysql"}})
	_, err := initStore(context.Background())
	assert.Error(t, err)
}
