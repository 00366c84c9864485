package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hivoco/lens-kiosk/internal/domain/capture"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the gateway is up",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := gatewayFromCmd(cmd).health(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("healthy")
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [image]",
	Short: "Search event photos for a face",
	Long: `Upload a photo through a capture session and print the matching
event photos.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Attendee record operations",
}

var csvUpdateCmd = &cobra.Command{
	Use:   "update [image]",
	Short: "Link a photo to an ADA number and phone",
	Args:  cobra.ExactArgs(1),
	RunE:  runCSVUpdate,
}

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Personalised video operations",
}

var videoGetCmd = &cobra.Command{
	Use:   "get [ada-number|mobile]",
	Short: "Look up a personalised video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := gatewayFromCmd(cmd).video(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(v.VideoURL)
		return nil
	},
}

func init() {
	csvCmd.AddCommand(csvUpdateCmd)
	videoCmd.AddCommand(videoGetCmd)

	searchCmd.Flags().String("profile", "basic", "Capture profile (basic or advanced)")
	searchCmd.Flags().Bool("json", false, "Print the settled session as JSON")

	csvUpdateCmd.Flags().String("ada", "", "ADA number")
	csvUpdateCmd.Flags().String("phone", "", "10-digit phone number")
	csvUpdateCmd.Flags().String("csv-file", "", "CSV file to update (gateway default when empty)")
	_ = csvUpdateCmd.MarkFlagRequired("ada")
	_ = csvUpdateCmd.MarkFlagRequired("phone")
}

func runSearch(cmd *cobra.Command, args []string) error {
	profile, _ := cmd.Flags().GetString("profile")
	asJSON, _ := cmd.Flags().GetBool("json")

	view, err := gatewayFromCmd(cmd).runPhoto(cmd.Context(), profile, args[0], nil)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(view)
	}
	return printOutcome(view)
}

func runCSVUpdate(cmd *cobra.Command, args []string) error {
	ada, _ := cmd.Flags().GetString("ada")
	phone, _ := cmd.Flags().GetString("phone")
	csvFile, _ := cmd.Flags().GetString("csv-file")

	fields := map[string]string{"ada_no": ada, "phone": phone}
	if csvFile != "" {
		fields["csv_file"] = csvFile
	}
	view, err := gatewayFromCmd(cmd).runPhoto(cmd.Context(), "with_id", args[0], fields)
	if err != nil {
		return err
	}
	return printOutcome(view)
}

func printOutcome(view *capture.View) error {
	if view.Outcome == nil {
		return fmt.Errorf("session %s ended in %s without an outcome", view.ID, view.Status)
	}
	fmt.Printf("%s: %s\n", view.Outcome.Kind, view.Outcome.Message)
	if view.Outcome.Payload == nil {
		return nil
	}
	return printJSON(view.Outcome.Payload)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
