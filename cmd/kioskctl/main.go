package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kioskctl",
	Short: "Lens kiosk CLI - operate a running kiosk gateway",
	Long: `kioskctl talks to a running lens-kiosk gateway.

It drives capture sessions from image files, looks up personalised
videos and runs the operator tasks behind the admin routes.

Examples:
  # Face search from a photo
  kioskctl search ./me.jpg

  # Link a photo to an ADA number
  kioskctl csv update ./me.jpg --ada ADA123 --phone 9876543210

  # Personalised video URL
  kioskctl video get 9876543210

  # Operator tasks
  export KIOSK_TOKEN=$(kioskctl login --email admin@hivoco.com --password-stdin < pw.txt)
  kioskctl jobs list --status failed
  kioskctl faces upload ./faces.zip`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(csvCmd)
	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(facesCmd)
	rootCmd.AddCommand(hashPasswordCmd)

	rootCmd.PersistentFlags().String("url", envOr("KIOSK_URL", "http://localhost:8190"), "Gateway base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("KIOSK_TOKEN"), "Operator bearer token")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Request timeout (0 for none)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
