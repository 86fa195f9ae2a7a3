package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/timmy/videoqa/internal/app"
	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/service"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Register a video and run the ingestion pipeline",
	Long: `Register a video and run transcription, chunking and indexing synchronously.

Examples:
  videoqa ingest --url https://www.youtube.com/watch?v=dQw4w9WgXcQ --title "Demo"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			video, err := a.Videos.Create(ctx, service.CreateVideoInput{
				URL:         url,
				Title:       title,
				Description: description,
			})
			if video != nil {
				printVideo(cmd, video)
			}
			return err
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		skip, _ := cmd.Flags().GetInt("skip")
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			videos, err := a.Videos.List(ctx, skip, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, videos)
			}
			for i := range videos {
				printVideo(cmd, &videos[i])
			}
			return nil
		})
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector collection of one video or all videos",
	Long: `Re-run the ingestion pipeline from the stored URL.

Examples:
  videoqa reindex --id 3f2b...
  videoqa reindex --all --workers 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		all, _ := cmd.Flags().GetBool("all")
		workers, _ := cmd.Flags().GetInt("workers")

		if (id == "") == !all {
			return domain.Validation("exactly one of --id or --all is required")
		}
		if workers < 1 {
			return domain.Validation("--workers must be at least 1")
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if !all {
				video, err := a.Videos.Reindex(ctx, id)
				if video != nil {
					printVideo(cmd, video)
				}
				return err
			}

			stats, err := a.Videos.ReindexAll(ctx, workers)
			if err != nil {
				return err
			}
			printStats(cmd, stats)
			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d videos failed to re-index", stats.Failed, stats.Total)
			}
			return nil
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about an indexed video",
	Long: `Answer a question from the video's most relevant transcript segments.

Examples:
  videoqa ask --id 3f2b... --question "What animals are mammals?"
  videoqa ask --id 3f2b... --question "Hello?" --placeholder`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		question, _ := cmd.Flags().GetString("question")
		placeholder, _ := cmd.Flags().GetBool("placeholder")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if placeholder {
				answer, err := a.QA.AskPlaceholder(ctx, id, question)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd, answer)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (confidence %.2f, %s)\n", answer.Answer, answer.Confidence, answer.Mode)
				return nil
			}

			entry, err := a.QA.Ask(ctx, id, question)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, entry)
			}
			fmt.Fprintln(cmd.OutOrStdout(), entry.Answer)
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show answered questions for a video, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			entries, err := a.QA.History(ctx, id)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, entries)
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] Q: %s\n  A: %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Question, e.Answer)
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a video with its collection and history",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Videos.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		})
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print a video's transcript, falling back to the archived copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			text, err := a.Videos.Transcript(ctx, id)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, map[string]string{"video_id": id, "transcription": text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

func init() {
	ingestCmd.Flags().String("url", "", "YouTube URL of the video")
	ingestCmd.Flags().String("title", "", "video title")
	ingestCmd.Flags().String("description", "", "video description")
	_ = ingestCmd.MarkFlagRequired("url")

	listCmd.Flags().Int("skip", 0, "number of videos to skip")
	listCmd.Flags().Int("limit", 100, "maximum number of videos to list")

	reindexCmd.Flags().String("id", "", "video ID to re-index")
	reindexCmd.Flags().Bool("all", false, "re-index every video")
	reindexCmd.Flags().Int("workers", 4, "concurrent videos when using --all")

	askCmd.Flags().String("id", "", "video ID")
	askCmd.Flags().String("question", "", "question text")
	askCmd.Flags().Bool("placeholder", false, "return the configured placeholder answer")
	_ = askCmd.MarkFlagRequired("id")
	_ = askCmd.MarkFlagRequired("question")

	historyCmd.Flags().String("id", "", "video ID")
	_ = historyCmd.MarkFlagRequired("id")

	transcriptCmd.Flags().String("id", "", "video ID")
	_ = transcriptCmd.MarkFlagRequired("id")

	deleteCmd.Flags().String("id", "", "video ID")
	_ = deleteCmd.MarkFlagRequired("id")
}

// exitCode maps the error taxonomy onto process exit codes.
func exitCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return 2
	case domain.KindNotFound:
		return 3
	case domain.KindUpstream:
		return 4
	}
	return 1
}

func printStats(cmd *cobra.Command, stats *service.ReindexStats) {
	if jsonOutput {
		failures := make(map[string]string, len(stats.Failures))
		for id, err := range stats.Failures {
			failures[id] = err.Error()
		}
		_ = printJSON(cmd, map[string]interface{}{
			"total":     stats.Total,
			"completed": stats.Completed,
			"failed":    stats.Failed,
			"failures":  failures,
			"duration":  stats.EndTime.Sub(stats.StartTime).String(),
		})
		return
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "total %d, completed %d, failed %d in %s\n",
		stats.Total, stats.Completed, stats.Failed, stats.EndTime.Sub(stats.StartTime))
	ids := make([]string, 0, len(stats.Failures))
	for id := range stats.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "  %s: %v\n", id, stats.Failures[id])
	}
}
