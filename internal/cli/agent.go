package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/store"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage companion agents",
	Long:  `Commands for inspecting the configured companion agents.`,
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured agents",
	RunE:  runAgentList,
}

var agentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one agent's persona and model",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentShow,
}

func init() {
	agentCmd.AddCommand(agentListCmd)
	agentCmd.AddCommand(agentShowCmd)
}

func openStore() (*store.Store, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return store.New(cfg.Store.Path)
}

func runAgentList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	agents, err := st.ListAgents()
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents configured. Run 'attune init' to seed a default one.")
		return nil
	}

	for _, a := range agents {
		fmt.Printf("%s  %s", a.ID, a.Name)
		if a.Description != "" {
			fmt.Printf("  — %s", a.Description)
		}
		fmt.Println()
	}
	return nil
}

func runAgentShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	agent, err := st.GetAgent(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Name:        %s\n", agent.Name)
	fmt.Printf("ID:          %s\n", agent.ID)
	if agent.Description != "" {
		fmt.Printf("Description: %s\n", agent.Description)
	}
	if agent.ModelID != "" {
		if model, err := st.GetModel(agent.ModelID); err == nil {
			fmt.Printf("Model:       %s (%s)\n", model.ModelName, model.Provider)
		}
	}
	fmt.Printf("Created:     %s\n", agent.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()
	fmt.Println("Persona:")
	fmt.Println(agent.Persona)
	return nil
}
