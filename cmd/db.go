package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bmlt-enabled/mayo-server/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the event database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database file and schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath(cmd)
		db, err := storage.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Printf("Database ready at %s\n", path)
		return nil
	},
}

var dbShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath(cmd)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", path)
		}

		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		c := exec.Command(sqlitePath, path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints event and announcement counts by moderation status.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := storage.Open(dbPath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.EventStats(context.Background())
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("No events in the database.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "STATUS\tEVENTS\tRECURRING\t")
		var totalEvents, totalRecurring int
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t\n", s.Status, s.Events, s.Recurring)
			totalEvents += s.Events
			totalRecurring += s.Recurring
		}
		fmt.Fprintln(w, " \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t%d\t\n", totalEvents, totalRecurring)
		if err := w.Flush(); err != nil {
			return err
		}

		annStats, err := db.AnnouncementStats(context.Background())
		if err != nil {
			return err
		}
		if len(annStats) == 0 {
			return nil
		}
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "STATUS\tANNOUNCEMENTS\t")
		total := 0
		for _, s := range annStats {
			fmt.Fprintf(w, "%s\t%d\t\n", s.Status, s.Events)
			total += s.Events
		}
		fmt.Fprintln(w, " \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t\n", total)
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbShellCmd)
	dbCmd.AddCommand(dbStatsCmd)
}
