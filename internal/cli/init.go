package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init [project-dir]",
	Short: "Initialize a new attune project",
	Long: `Initialize an attune project: write the attune.yaml scaffold, a .env
template for API credentials, and seed the database with a default model
and companion agent.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Join(dir, ".attune"), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	configPath := filepath.Join(dir, "attune.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("attune.yaml already exists in %s", dir)
	}
	if err := os.WriteFile(configPath, []byte(config.DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("failed to write attune.yaml: %w", err)
	}

	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte(config.DefaultEnvFile), 0600); err != nil {
			return fmt.Errorf("failed to write .env: %w", err)
		}
	}

	if err := appendGitignore(dir); err != nil {
		return err
	}

	if err := seedStore(dir); err != nil {
		return err
	}

	fmt.Printf("Initialized attune project in %s\n", dir)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Add your API keys to .env")
	fmt.Println("  2. Run 'attune serve' to start the server")
	return nil
}

func appendGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to update .gitignore: %w", err)
	}
	defer f.Close()

	_, err = f.WriteString(config.GitignoreEntries)
	return err
}

// seedStore creates the database with one default model and companion so a
// fresh install can chat immediately.
func seedStore(dir string) error {
	st, err := store.New(filepath.Join(dir, ".attune", "attune.db"))
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer st.Close()

	models, err := st.ListModels()
	if err != nil {
		return err
	}
	if len(models) > 0 {
		return nil
	}

	model := &store.Model{
		Provider:    "anthropic",
		ModelName:   "claude-sonnet-4-20250514",
		DisplayName: "Claude Sonnet 4",
	}
	if err := st.CreateModel(model); err != nil {
		return err
	}

	agent := &store.Agent{
		Name:        "aria",
		Description: "Default companion",
		Persona: "You are Aria, a warm and attentive companion. You listen closely, " +
			"remember what matters to the person you talk with, and respond with " +
			"genuine curiosity. Keep replies conversational and grounded.",
		ModelID: model.ID,
	}
	return st.CreateAgent(agent)
}
