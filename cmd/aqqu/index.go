package aqqu

import (
	"fmt"
	"strings"

	"github.com/soundprediction/aqqu/pkg/config"
	"github.com/soundprediction/aqqu/pkg/entityindex"
	"github.com/soundprediction/aqqu/pkg/logger"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the persistent entity index",
}

var indexLoadCmd = &cobra.Command{
	Use:   "load [fixture.yaml]",
	Short: "Load a YAML entity fixture into the badger entity index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexLoad,
}

var indexLookupCmd = &cobra.Command{
	Use:   "lookup [surface]",
	Short: "Look up the entities matching a surface form",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIndexLookup,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexLoadCmd, indexLookupCmd)

	indexCmd.PersistentFlags().String("index-path", "", "Badger entity index directory")
}

func openIndex(cmd *cobra.Command) (*entityindex.BadgerIndex, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("index-path") {
		cfg.EntityIndex.Path, _ = cmd.Flags().GetString("index-path")
	}
	if cfg.EntityIndex.Path == "" {
		return nil, fmt.Errorf("entity index path is required")
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, NoColor: cfg.Log.NoColor})
	return entityindex.OpenBadgerIndex(cfg.EntityIndex.Path, log)
}

func runIndexLoad(cmd *cobra.Command, args []string) error {
	f, err := entityindex.LoadFixtureFile(args[0])
	if err != nil {
		return err
	}
	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := entityindex.Load(cmd.Context(), idx, f)
	if err != nil {
		return fmt.Errorf("loaded %d entities before failing: %w", n, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d entities from %s\n", n, args[0])
	return nil
}

func runIndexLookup(cmd *cobra.Command, args []string) error {
	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	matches, err := idx.Lookup(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	heading.Fprintf(out, "%d matches\n", len(matches))
	for _, m := range matches {
		fmt.Fprintf(out, "  %-20s %-30s %.4f\n", m.Entity.ID, m.Entity.Name, m.Score)
	}
	return nil
}
