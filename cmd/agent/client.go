package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agent-host/internal/a2a"
)

var (
	agentURL      string
	contextID     string
	historyLength int
)

var (
	sendCmd = &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message to an A2A agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a2a.NewClient(agentURL).SendMessage(cmd.Context(), args[0], contextID)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}

	getCmd = &cobra.Command{
		Use:   "get <task-id>",
		Short: "Fetch a task by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a2a.NewClient(agentURL).GetTask(cmd.Context(), args[0], historyLength)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a2a.NewClient(agentURL).CancelTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}

	cardCmd = &cobra.Command{
		Use:   "card",
		Short: "Fetch an agent's discovery card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := a2a.NewClient(agentURL).FetchAgentCard(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(card)
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{sendCmd, getCmd, cancelCmd, cardCmd} {
		cmd.Flags().StringVar(&agentURL, "url", "http://localhost:8080", "agent base URL (e.g. http://host:8080/agents/1)")
	}
	sendCmd.Flags().StringVar(&contextID, "context", "", "context id grouping the conversation")
	getCmd.Flags().IntVar(&historyLength, "history", 0, "return only the last N history messages (0 for all)")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
