// Package main implements the todo terminal client.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"todo-api/client"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var apiBase string

var rootCmd = &cobra.Command{
	Use:          "todo-tui",
	Short:        "Interactive client for the todo API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(client.NewModel(client.New(apiBase)), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all todos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := client.New(apiBase).List(cmd.Context())
		if err != nil {
			return err
		}
		for _, it := range items {
			box := "[ ]"
			if it.IsDone {
				box = "[x]"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s\n", box, it.ID, it.Title)
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a todo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := client.New(apiBase).Create(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), item.ID)
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a todo as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := client.New(apiBase).MarkDone(cmd.Context(), args[0])
		return err
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a todo",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.New(apiBase).Delete(cmd.Context(), args[0])
	},
}

func init() {
	def := os.Getenv("TODO_API_BASE")
	if def == "" {
		def = "http://localhost:8080/api"
	}
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", def, "base URL of the todo API")
	rootCmd.AddCommand(listCmd, addCmd, doneCmd, deleteCmd)
}
