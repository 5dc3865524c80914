package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmlt-enabled/mayo-server/internal/utils"
	"github.com/bmlt-enabled/mayo-server/pkg/event"
	"github.com/bmlt-enabled/mayo-server/pkg/recurrence"
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Preview the occurrence dates of a recurring pattern",
	Long: `Expands a recurring pattern from an anchor date and prints the
occurrence dates, one per line. The pattern is the same JSON the API
stores, e.g.:

  mayo-server expand --start 2025-07-15 \
    --pattern '{"type":"weekly","interval":1,"weekdays":[2,4],"endDate":"2025-07-29"}'`,
	Run: func(cmd *cobra.Command, args []string) {
		start, _ := cmd.Flags().GetString("start")
		patternJSON, _ := cmd.Flags().GetString("pattern")
		endStr, _ := cmd.Flags().GetString("end")
		max, _ := cmd.Flags().GetInt("max")
		clamp, _ := cmd.Flags().GetBool("clamp-short-months")

		if start == "" || patternJSON == "" {
			utils.Log.Fatal("Both --start and --pattern are required")
		}
		if _, err := recurrence.ParseDate(start); err != nil {
			utils.Log.Fatal("Invalid --start date: ", err)
		}

		p := event.ParsePattern([]byte(patternJSON))
		if !p.Recurring() {
			utils.Log.Fatal("Pattern does not recur (check type and sub-mode fields)")
		}

		cfg := recurrence.Config{MaxInstances: max}
		if clamp {
			cfg.Overflow = recurrence.ClampToMonthEnd
		}
		if endStr != "" {
			end, err := recurrence.ParseDate(endStr)
			if err != nil {
				utils.Log.Fatal("Invalid --end date: ", err)
			}
			cfg.End = end
		}

		for _, d := range recurrence.ExpandPattern(start, p, cfg) {
			fmt.Println(d)
		}
	},
}

func init() {
	expandCmd.Flags().String("start", "", "Anchor date, YYYY-MM-DD")
	expandCmd.Flags().String("pattern", "", "Recurring pattern JSON")
	expandCmd.Flags().String("end", "", "Inclusive end bound, YYYY-MM-DD (default: pattern's endDate)")
	expandCmd.Flags().Int("max", 0, "Max occurrences to print (default 1000)")
	expandCmd.Flags().Bool("clamp-short-months", false, "Clamp monthly day-of-month overflow to the month's last day instead of skipping")
	rootCmd.AddCommand(expandCmd)
}
