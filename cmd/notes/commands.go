package notes

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ValentinKolb/bKV/lib/notes"
	"github.com/spf13/cobra"
)

var (
	addCmd = &cobra.Command{
		Use:   "add [title] [content]",
		Short: "Creates a note",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			content := ""
			if len(args) == 2 {
				content = args[1]
			}
			labelNames, _ := cmd.Flags().GetStringSlice("label")
			if err := touchLabels(cmd, labelNames); err != nil {
				return err
			}
			note, err := collection.Add(ctx, args[0], content, labelNames)
			if err != nil {
				return err
			}
			if color, _ := cmd.Flags().GetString("color"); color != "" {
				if note, err = collection.Update(ctx, note.ID, notes.Update{Color: &color}); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", shortID(note.ID))
			return nil
		},
	}
	editCmd = &cobra.Command{
		Use:   "edit [id]",
		Short: "Changes title, content, labels or color of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveID(args[0])
			if err != nil {
				return err
			}
			var u notes.Update
			if cmd.Flags().Changed("title") {
				title, _ := cmd.Flags().GetString("title")
				u.Title = &title
			}
			if cmd.Flags().Changed("content") {
				content, _ := cmd.Flags().GetString("content")
				u.Content = &content
			}
			if cmd.Flags().Changed("color") {
				color, _ := cmd.Flags().GetString("color")
				u.Color = &color
			}
			if cmd.Flags().Changed("label") {
				u.Labels, _ = cmd.Flags().GetStringSlice("label")
				if err := touchLabels(cmd, u.Labels); err != nil {
					return err
				}
			}
			note, err := collection.Update(commandContext(cmd), id, u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", shortID(note.ID))
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Lists notes, pinned first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			archived, _ := cmd.Flags().GetBool("archived")
			trash, _ := cmd.Flags().GetBool("trash")
			label, _ := cmd.Flags().GetString("label")

			var list []notes.Note
			switch {
			case trash:
				list = collection.Deleted()
			case archived:
				list = collection.Archived()
			case label != "":
				list = collection.ByLabel(label)
			default:
				list = collection.Active()
			}
			printNotes(cmd, list)
			return nil
		},
	}
	showCmd = &cobra.Command{
		Use:   "show [id]",
		Short: "Prints a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveID(args[0])
			if err != nil {
				return err
			}
			note, err := collection.Get(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n%s\n\n", note.Title, note.Content)
			fmt.Fprintf(out, "id:      %s\n", note.ID)
			fmt.Fprintf(out, "labels:  %s\n", strings.Join(note.Labels, ", "))
			fmt.Fprintf(out, "updated: %s\n", time.UnixMilli(note.UpdatedAt).Format(time.DateTime))
			return nil
		},
	}
	searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Finds active notes whose title or content contains query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printNotes(cmd, collection.Search(args[0]))
			return nil
		},
	}
	rmCmd = &cobra.Command{
		Use:   "rm [id]",
		Short: "Moves a note to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: idCommand("moved to trash", func(cmd *cobra.Command, id string) error {
			_, err := collection.Delete(commandContext(cmd), id)
			return err
		}),
	}
	restoreCmd = &cobra.Command{
		Use:   "restore [id]",
		Short: "Restores a note from the trash",
		Args:  cobra.ExactArgs(1),
		RunE: idCommand("restored", func(cmd *cobra.Command, id string) error {
			_, err := collection.Restore(commandContext(cmd), id)
			return err
		}),
	}
	purgeCmd = &cobra.Command{
		Use:   "purge [id]",
		Short: "Deletes a note permanently, or with --trash every note in the trash older than --older-than",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if trash, _ := cmd.Flags().GetBool("trash"); trash {
				olderThan, _ := cmd.Flags().GetDuration("older-than")
				n, err := collection.PurgeTrash(commandContext(cmd), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d notes\n", n)
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("purge needs a note id or --trash")
			}
			return idCommand("purged", func(cmd *cobra.Command, id string) error {
				return collection.Purge(commandContext(cmd), id)
			})(cmd, args)
		},
	}
	pinCmd = &cobra.Command{
		Use:   "pin [id]",
		Short: "Pins or unpins a note",
		Args:  cobra.ExactArgs(1),
		RunE: idCommand("toggled pin of", func(cmd *cobra.Command, id string) error {
			_, err := collection.TogglePin(commandContext(cmd), id)
			return err
		}),
	}
	archiveCmd = &cobra.Command{
		Use:   "archive [id]",
		Short: "Archives a note, with --undo moves it back",
		Args:  cobra.ExactArgs(1),
		RunE: idCommand("archived", func(cmd *cobra.Command, id string) error {
			if undo, _ := cmd.Flags().GetBool("undo"); undo {
				_, err := collection.Unarchive(commandContext(cmd), id)
				return err
			}
			_, err := collection.Archive(commandContext(cmd), id)
			return err
		}),
	}
	labelsRmCmd = &cobra.Command{
		Use:     "rm [name]",
		Aliases: []string{"del"},
		Short:   "Deletes a label and takes it off every note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, ok := labelsIndex.ByName(args[0])
			if !ok {
				return fmt.Errorf("label %s: %w", args[0], notes.ErrNotFound)
			}
			n, err := notes.DeleteLabel(commandContext(cmd), collection, labelsIndex, label.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted label %s from %d notes\n", label.Name, n)
			return nil
		},
	}
	labelsRenameCmd = &cobra.Command{
		Use:   "rename [name] [new name]",
		Short: "Renames a label on every note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, ok := labelsIndex.ByName(args[0])
			if !ok {
				return fmt.Errorf("label %s: %w", args[0], notes.ErrNotFound)
			}
			n, err := notes.RenameLabel(commandContext(cmd), collection, labelsIndex, label.ID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed label %s on %d notes\n", label.Name, n)
			return nil
		},
	}
	labelsCmd = &cobra.Command{
		Use:   "labels",
		Short: "Lists all labels, rm and rename change them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tNOTES\tLAST USED")
			for _, label := range labelsIndex.All() {
				lastUsed := "-"
				if label.LastUsedAt > 0 {
					lastUsed = time.UnixMilli(label.LastUsedAt).Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", label.Name, len(collection.ByLabel(label.Name)), lastUsed)
			}
			return w.Flush()
		},
	}
)

func init() {
	addCmd.Flags().StringSliceP("label", "l", nil, "Labels of the note")
	addCmd.Flags().String("color", "", "Color of the note")

	editCmd.Flags().String("title", "", "New title")
	editCmd.Flags().String("content", "", "New content")
	editCmd.Flags().String("color", "", "New color")
	editCmd.Flags().StringSliceP("label", "l", nil, "New labels, replacing the old ones")

	listCmd.Flags().Bool("archived", false, "List archived notes")
	listCmd.Flags().Bool("trash", false, "List notes in the trash")
	listCmd.Flags().String("label", "", "List active notes with this label")

	purgeCmd.Flags().Bool("trash", false, "Purge the trash instead of a single note")
	purgeCmd.Flags().Duration("older-than", notes.TrashRetention, "With --trash only purge notes deleted longer ago")

	archiveCmd.Flags().Bool("undo", false, "Unarchive the note")

	labelsCmd.AddCommand(labelsRmCmd)
	labelsCmd.AddCommand(labelsRenameCmd)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// idCommand resolves the id argument, runs fn and prints "<done> <id>"
func idCommand(done string, fn func(cmd *cobra.Command, id string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(args[0])
		if err != nil {
			return err
		}
		if err := fn(cmd, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, shortID(id))
		return nil
	}
}

// resolveID expands a unique id prefix to the full note id
func resolveID(prefix string) (string, error) {
	var matches []string
	for _, list := range [][]notes.Note{collection.Active(), collection.Archived(), collection.Deleted()} {
		for _, note := range list {
			if note.ID == prefix {
				return note.ID, nil
			}
			if strings.HasPrefix(note.ID, prefix) {
				matches = append(matches, note.ID)
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("note %s: %w", prefix, notes.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %s is ambiguous (%d notes)", prefix, len(matches))
	}
}

// touchLabels creates missing labels and marks them as used.
// Nothing is changed if one of the names is empty.
func touchLabels(cmd *cobra.Command, names []string) error {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("label name must not be empty")
		}
	}

	ctx := commandContext(cmd)
	for _, name := range names {
		label, err := labelsIndex.AddByName(ctx, name)
		if err != nil {
			return err
		}
		if _, err := labelsIndex.Touch(ctx, label.ID); err != nil {
			return err
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printNotes(cmd *cobra.Command, list []notes.Note) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tLABELS\tUPDATED")
	for _, note := range list {
		title := note.Title
		if note.IsPinned {
			title = "* " + title
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			shortID(note.ID), title, strings.Join(note.Labels, ","),
			time.UnixMilli(note.UpdatedAt).Format(time.DateTime))
	}
	_ = w.Flush()
}
