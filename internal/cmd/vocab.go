package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chordflow/encore/internal/config"
	"github.com/chordflow/encore/internal/vocab"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Inspect vocabulary resources",
}

var vocabValidateCmd = &cobra.Command{
	Use:   "validate [name...]",
	Short: "Check that vocabulary files resolve",
	Long: `Check that the named vocabularies resolve to .voc files in the
configured resource directories. With no names, checks the vocabularies
the skill depends on at runtime.

Examples:
  encore vocab validate
  encore vocab validate converse_resume yes`,
	RunE: runVocabValidate,
}

func init() {
	rootCmd.AddCommand(vocabCmd)
	vocabCmd.AddCommand(vocabValidateCmd)
}

func runVocabValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = []string{"converse_resume"}
	}

	matcher := vocab.New(cfg.Vocab.SkillDir, cfg.Vocab.FrameworkDir,
		vocab.WithDefaultLang(cfg.Skill.Lang))

	failed := 0
	for _, name := range names {
		if err := matcher.Preload(name, cfg.Skill.Lang); err != nil {
			fmt.Printf("  %-20s MISSING (%v)\n", name, err)
			failed++
			continue
		}
		fmt.Printf("  %-20s ok\n", name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d vocabularies failed to resolve", failed, len(names))
	}
	return nil
}
