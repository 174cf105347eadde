package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/partyphoto/internal/app"
	"github.com/zzenonn/partyphoto/internal/config"
	"github.com/zzenonn/partyphoto/internal/logging"
)

var (
	configPath string
	cfg        *config.Config
	deps       *app.App
)

var rootCmd = &cobra.Command{
	Use:   "partyphoto",
	Short: "Admin CLI for the party photo backend",
	Long:  "A CLI application built with Cobra for managing party photo tables, photos and login links",
}

func init() {
	cobra.OnInitialize(initConfig)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the DynamoDB tables",
	Run: func(cmd *cobra.Command, args []string) {
		if err := deps.Database.MigrateDb(context.Background(), deps.Tables()); err != nil {
			fmt.Printf("Failed to migrate the database: %v\n", err)
			return
		}

		fmt.Println("Database initialized and migrated successfully")
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop the DynamoDB tables",
	Run: func(cmd *cobra.Command, args []string) {
		if err := deps.Database.MigrateDown(context.Background(), deps.Tables()); err != nil {
			fmt.Printf("Failed to roll back migrations: %v\n", err)
			return
		}

		fmt.Println("Database migrations rolled back successfully")
	},
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)

	deps, err = app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("bucket", "s3://party-photos", "photo bucket (s3://name or gs://name)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(downCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
