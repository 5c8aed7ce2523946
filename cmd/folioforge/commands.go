package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lamim/folioforge/internal/checkpoint"
	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/internal/export"
	"github.com/lamim/folioforge/internal/writer"
	"github.com/lamim/folioforge/pkg/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	partialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	pendingStyle = lipgloss.NewStyle().Faint(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func newSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List outline sections and their generation status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(true)
			if err != nil {
				return err
			}
			sections, err := loadOutline(cfg)
			if err != nil {
				return err
			}
			layout, store, err := openState(cfg)
			if err != nil {
				return err
			}

			chapter := ""
			counts := map[string]int{}
			for _, s := range sections {
				if s.Chapter != chapter {
					chapter = s.Chapter
					fmt.Println(headerStyle.Render(chapter))
				}
				status := sectionStatus(layout, store, s)
				counts[status]++
				fmt.Printf("  %s %-6s %s\n", renderStatus(status), s.Number, s.Title)
			}
			fmt.Printf("\n%d sections: %d done, %d partial, %d pending\n",
				len(sections), counts["DONE"], counts["PARTIAL"], counts["PENDING"])
			return nil
		},
	}
}

func sectionStatus(layout *writer.Layout, store *checkpoint.Store, s models.Section) string {
	rec, ok := store.Record(s.ID())
	switch {
	case ok && rec.Status == models.StatusCompleted && layout.ArtifactExists(s):
		return "DONE"
	case ok:
		return "PARTIAL"
	case layout.ArtifactExists(s):
		return "DONE"
	default:
		return "PENDING"
	}
}

func renderStatus(status string) string {
	label := fmt.Sprintf("%-7s", status)
	switch status {
	case "DONE":
		return doneStyle.Render(label)
	case "PARTIAL":
		return partialStyle.Render(label)
	default:
		return pendingStyle.Render(label)
	}
}

func openState(cfg *config.Config) (*writer.Layout, *checkpoint.Store, error) {
	layout, err := writer.NewLayout(cfg.Generation.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	store, err := checkpoint.Open(cfg.Generation.CheckpointFile, consoleLogger())
	if err != nil {
		return nil, nil, err
	}
	return layout, store, nil
}

func newCheckpointCmd() *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage checkpoints",
		Long:  "Inspect and clear per-section generation checkpoints",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List checkpointed sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(true)
			if err != nil {
				return err
			}
			_, store, err := openState(cfg)
			if err != nil {
				return err
			}

			sum := store.Summary()
			if sum.Total == 0 {
				fmt.Println("No checkpoints found. Run a generation first.")
				return nil
			}

			ids := make([]string, 0, len(sum.Sections))
			for id := range sum.Sections {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return models.LessSectionNumber(ids[i], ids[j]) })

			fmt.Printf("%s %s\n\n", headerStyle.Render("Checkpoints"), store.Path())
			fmt.Printf("%-8s %-12s %-8s %-10s %s\n", "SECTION", "STATUS", "TOPICS", "UNITS", "UPDATED")
			for _, id := range ids {
				rec := sum.Sections[id]
				fmt.Printf("%-8s %-12s %-8s %-10d %s\n",
					id,
					rec.Status,
					fmt.Sprintf("%d/%d", len(rec.CompletedTopics), rec.TotalTopics),
					len(rec.CompletedSubsections),
					rec.UpdatedAt.Format("2006-01-02 15:04"))
			}
			fmt.Printf("\n%d sections: %d completed, %d in progress\n", sum.Total, sum.Completed, sum.InProgress)
			return nil
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <section>",
		Short: "Inspect the checkpoint of one section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(true)
			if err != nil {
				return err
			}
			_, store, err := openState(cfg)
			if err != nil {
				return err
			}

			rec, ok := store.Record(args[0])
			if !ok {
				return fmt.Errorf("no checkpoint for section %s", args[0])
			}

			fmt.Println(headerStyle.Render(fmt.Sprintf("Section %s: %s", args[0], rec.SectionTitle)))
			fmt.Printf("  Status:          %s\n", rec.Status)
			fmt.Printf("  Started:         %s\n", rec.StartedAt.Format(time.RFC3339))
			fmt.Printf("  Updated:         %s\n", rec.UpdatedAt.Format(time.RFC3339))
			fmt.Printf("  Topics:          %d/%d complete\n", len(rec.CompletedTopics), rec.TotalTopics)
			fmt.Printf("  Current topic:   %d\n", rec.CurrentTopic)
			fmt.Printf("  Units complete:  %d\n", len(rec.CompletedSubsections))
			if len(rec.CompletedSubsections) > 0 {
				fmt.Printf("  Keys:            %s\n", strings.Join(rec.CompletedSubsections, " "))
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <section>",
		Short: "Clear the checkpoint of one section so it is generated from scratch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(true)
			if err != nil {
				return err
			}
			layout, store, err := openState(cfg)
			if err != nil {
				return err
			}

			if _, ok := store.Record(args[0]); !ok {
				return fmt.Errorf("no checkpoint for section %s", args[0])
			}
			if err := store.ClearSection(args[0]); err != nil {
				return fmt.Errorf("failed to clear checkpoint: %w", err)
			}
			journal, err := layout.JournalPath(models.Section{Number: args[0]})
			if err == nil {
				if err := os.Remove(journal); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to remove journal: %w", err)
				}
			}
			fmt.Printf("Cleared checkpoint for section %s\n", args[0])
			return nil
		},
	}

	checkpointCmd.AddCommand(listCmd, inspectCmd, clearCmd)
	return checkpointCmd
}

func newCombineCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Combine generated sections into one document in outline order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(true)
			if err != nil {
				return err
			}
			sections, err := loadOutline(cfg)
			if err != nil {
				return err
			}
			layout, err := writer.NewLayout(cfg.Generation.OutputDir)
			if err != nil {
				return err
			}

			res, err := writer.Combine(layout, sections, title, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Combined %d sections (~%d words) into %s\n", res.Included, res.Words, res.Path)
			if len(res.Missing) > 0 {
				fmt.Printf("Not yet generated: %s\n", strings.Join(res.Missing, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "Complete Textbook", "Title of the combined document")
	return cmd
}

func newExportCmd() *cobra.Command {
	var format, input string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert the combined document with pandoc",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				cfg, _, err := loadConfig(true)
				if err != nil {
					return err
				}
				layout, err := writer.NewLayout(cfg.Generation.OutputDir)
				if err != nil {
					return err
				}
				input = layout.CombinedPath()
			}
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("nothing to export: %w (run combine first)", err)
			}

			exporter, err := export.New(consoleLogger())
			if err != nil {
				return err
			}
			out, err := exporter.Export(cmd.Context(), input, format)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "docx", "Output format: "+strings.Join(export.Formats, ", "))
	cmd.Flags().StringVar(&input, "input", "", "Markdown file to convert (default: the combined document)")
	return cmd
}
