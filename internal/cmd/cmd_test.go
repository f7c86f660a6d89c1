package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "encore" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "encore")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"demo", "vocab"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVocabCommandHasValidate(t *testing.T) {
	found := false
	for _, cmd := range vocabCmd.Commands() {
		if cmd.Name() == "validate" {
			found = true
		}
	}
	if !found {
		t.Error("vocab command should have a validate subcommand")
	}
}

func TestInitConfig_ReadsConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := "arbiter:\n  base_timeout_ms: 321\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	viper.Set("config", cfgFile)
	initConfig()

	if got := viper.GetInt("arbiter.base_timeout_ms"); got != 321 {
		t.Errorf("arbiter.base_timeout_ms = %d, want 321", got)
	}
}

func TestInitConfig_DefaultsWithoutFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	initConfig()

	if got := viper.GetInt("arbiter.base_timeout_ms"); got != 1000 {
		t.Errorf("default arbiter.base_timeout_ms = %d, want 1000", got)
	}
	if got := viper.GetString("skill.play_trigger"); got != "play" {
		t.Errorf("default skill.play_trigger = %q, want %q", got, "play")
	}
}
