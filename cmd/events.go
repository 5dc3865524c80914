package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bmlt-enabled/mayo-server/internal/utils"
	"github.com/bmlt-enabled/mayo-server/pkg/aggregate"
	"github.com/bmlt-enabled/mayo-server/pkg/sources"
	"github.com/bmlt-enabled/mayo-server/pkg/storage"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the aggregated event listing",
	Long: `Runs the same aggregation the API serves: local events (with recurring
expansion) merged with any remote sources listed via --sources, filtered,
sorted and paginated.`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := storage.Open(dbPath(cmd))
		if err != nil {
			utils.Log.Fatal("Failed to open database: ", err)
		}
		defer db.Close()

		pipeline, _ := buildPipeline(db)

		eventType, _ := cmd.Flags().GetString("event-type")
		serviceBody, _ := cmd.Flags().GetString("service-body")
		relation, _ := cmd.Flags().GetString("relation")
		categories, _ := cmd.Flags().GetString("categories")
		tags, _ := cmd.Flags().GetString("tags")
		archive, _ := cmd.Flags().GetBool("archive")
		sourceIDs, _ := cmd.Flags().GetStringSlice("sources")
		page, _ := cmd.Flags().GetInt("page")
		perPage, _ := cmd.Flags().GetInt("per-page")
		order, _ := cmd.Flags().GetString("order")
		asJSON, _ := cmd.Flags().GetBool("json")

		result, err := pipeline.Aggregate(context.Background(), aggregate.Request{
			Query: sources.Query{
				EventType:   eventType,
				ServiceBody: serviceBody,
				Relation:    relation,
				Categories:  categories,
				Tags:        tags,
				Archive:     archive,
			},
			SourceIDs: sourceIDs,
			Page:      page,
			PerPage:   perPage,
			Order:     order,
		})
		if err != nil {
			utils.Log.Fatal("Aggregation failed: ", err)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				utils.Log.Fatal(err)
			}
			return
		}

		for _, rec := range result.Events {
			line := rec.StartDate
			if rec.StartTime != "" {
				line += " " + rec.StartTime
			}
			line += "  " + rec.Title
			if rec.Source.Name != "" {
				line += "  [" + rec.Source.Name + "]"
			}
			fmt.Println(line)
		}
		p := result.Pagination
		fmt.Printf("\nPage %d/%d, %d events total\n", p.CurrentPage, p.TotalPages, p.Total)
	},
}

func init() {
	eventsCmd.Flags().String("event-type", "", "Filter by event type")
	eventsCmd.Flags().String("service-body", "", "Filter by service body (comma-separated)")
	eventsCmd.Flags().String("relation", "AND", "Relation between filters: AND or OR")
	eventsCmd.Flags().String("categories", "", "Category slugs, prefix with '-' to exclude")
	eventsCmd.Flags().String("tags", "", "Tag slugs, prefix with '-' to exclude")
	eventsCmd.Flags().Bool("archive", false, "List past events instead of upcoming")
	eventsCmd.Flags().StringSlice("sources", nil, "External source ids to include")
	eventsCmd.Flags().Int("page", 1, "Page number")
	eventsCmd.Flags().Int("per-page", 10, "Events per page")
	eventsCmd.Flags().String("order", "ASC", "Sort order: ASC or DESC")
	eventsCmd.Flags().Bool("json", false, "Print the full response envelope as JSON")
	rootCmd.AddCommand(eventsCmd)
}
