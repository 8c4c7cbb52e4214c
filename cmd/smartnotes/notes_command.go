package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/smartnotes/internal/models"
)

func newNotesCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List, show and delete saved notes",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "Owner of the notes")

	owner := func() (string, error) {
		id := strings.TrimSpace(userID)
		if id == "" {
			return "", errors.New("--user is required")
		}
		return id, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := owner()
			if err != nil {
				return err
			}
			cfg, err := ctx.validConfig("llm.", "youtube.", "upload.", "live.", "auth.")
			if err != nil {
				return err
			}
			notes, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to open note store: %w", err)
			}
			defer notes.Close()

			list, err := notes.List(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved notes")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, n := range list {
				rows = append(rows, []string{n.ID, n.Title, string(n.Source), noteOrigin(n), n.CreatedAt.Local().Format(time.DateTime)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Title", "Source", "Origin", "Created"}, rows))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := owner()
			if err != nil {
				return err
			}
			cfg, err := ctx.validConfig("llm.", "youtube.", "upload.", "live.", "auth.")
			if err != nil {
				return err
			}
			notes, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to open note store: %w", err)
			}
			defer notes.Close()

			note, err := notes.Get(cmd.Context(), args[0], id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.Bold).Fprintln(out, note.Title)
			fmt.Fprintf(out, "%s · %s\n\n", note.Source, note.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintln(out, note.StructuredNotes)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := owner()
			if err != nil {
				return err
			}
			cfg, err := ctx.validConfig("llm.", "youtube.", "upload.", "live.", "auth.")
			if err != nil {
				return err
			}
			notes, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to open note store: %w", err)
			}
			defer notes.Close()

			if err := notes.Delete(cmd.Context(), args[0], id); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ Deleted note %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func noteOrigin(n models.NoteSummary) string {
	switch {
	case n.SourceURL != nil:
		return *n.SourceURL
	case n.FileName != nil:
		return *n.FileName
	default:
		return "-"
	}
}
