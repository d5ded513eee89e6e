package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wardroom/internal/workflow"
)

// workflowsCmd lists the guided starting points without opening a session
var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List the guided analysis workflows",
	Long: `Prints every workflow the assistant can start, including any
definitions overlaid from the workspace workflows file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := workflow.NewRegistry(resolvePath(cfg.Workflows.DefinitionsPath))
		if err != nil {
			return fmt.Errorf("failed to load workflows: %w", err)
		}

		for _, def := range registry.List() {
			fmt.Printf("%-22s %s\n", def.ID, def.Name)
			fmt.Printf("%-22s %s\n", "", def.Description)
			if def.InitialPrompt != "" {
				fmt.Printf("%-22s starts with: %q\n", "", def.InitialPrompt)
			}
			fmt.Println()
		}
		return nil
	},
}
