package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/apexwatch/face-enroll/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "face-enroll",
	Short: "Batch face enrollment for the security console",
	Long: `Face Enroll validates badge photos, queues them, and registers each
face with the enrollment service one at a time. It runs either as a web
server backing the console's batch screen or as a one-shot CLI over a
folder of images.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.InitLogger(level)
	}
}
