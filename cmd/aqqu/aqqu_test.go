package aqqu

import (
	"errors"
	"strconv"
	"testing"

	"github.com/soundprediction/aqqu/pkg/config"
	"github.com/soundprediction/aqqu/pkg/execution"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideTranslatorFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addTranslatorFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--backend-driver", "neo4j",
		"--backend-uri", "bolt://localhost:7687",
		"--scorer", "GLiNERScorer",
	}))

	cfg := &config.Config{}
	cfg.Backend.Driver = "memory"
	cfg.EntityIndex.Driver = "memory"
	overrideTranslatorFlags(cmd, cfg)

	assert.Equal(t, "neo4j", cfg.Backend.Driver)
	assert.Equal(t, "bolt://localhost:7687", cfg.Backend.URI)
	assert.Equal(t, "GLiNERScorer", cfg.Ranking.Scorer)
	assert.Equal(t, "memory", cfg.EntityIndex.Driver, "unchanged flags keep config values")
}

func TestValidateTranslatorConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"memory", func(c *config.Config) {}, false},
		{"neo4j without uri", func(c *config.Config) { c.Backend.Driver = "neo4j" }, true},
		{"ladybug without path", func(c *config.Config) { c.Backend.Driver = "ladybug" }, true},
		{"badger without path", func(c *config.Config) { c.EntityIndex.Driver = "badger" }, true},
		{"negative limit", func(c *config.Config) { c.Execution.Limit = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Backend.Driver = "memory"
			cfg.EntityIndex.Driver = "memory"
			tt.mutate(cfg)
			err := validateTranslatorConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateServerConfigPort(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = 0
	assert.Error(t, validateServerConfig(cfg))
	cfg.Server.Port = 8080
	assert.NoError(t, validateServerConfig(cfg))
}

func TestRuntimeCloseOrder(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	rt := &runtime{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return boom },
	}}

	err := rt.Close()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{2, 1}, order)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"server", "translate", "index"} {
		assert.True(t, names[want], want)
	}
}

func TestTranslateLimitFlag(t *testing.T) {
	flag := translateCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, strconv.Itoa(execution.DefaultLimit), flag.DefValue)
	assert.NotContains(t, flag.Usage, "all")
}
