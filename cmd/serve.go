package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bmlt-enabled/mayo-server/internal/server"
	"github.com/bmlt-enabled/mayo-server/internal/utils"
	"github.com/bmlt-enabled/mayo-server/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, feed and submission server",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := storage.Open(dbPath(cmd))
		if err != nil {
			utils.Log.Fatal("Failed to open database: ", err)
		}
		defer db.Close()

		pipeline, dir := buildPipeline(db)

		srv := server.New(
			db,
			pipeline,
			dir,
			viper.GetString("site_url"),
			viper.GetString("auth.username"),
			viper.GetString("auth.password"),
		)

		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = viper.GetString("listen")
		}
		if err := srv.Start(addr); err != nil {
			utils.Log.Fatal("Server error: ", err)
		}
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (default from config, e.g. :8080)")
	rootCmd.AddCommand(serveCmd)
}
