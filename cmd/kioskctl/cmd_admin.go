package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hivoco/lens-kiosk/internal/infrastructure/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an operator token",
	Long: `Log in with operator credentials and print the bearer token.
Export it as KIOSK_TOKEN for the admin commands.`,
	RunE: runLogin,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Video job operations",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List video generation jobs",
	RunE:  runJobsList,
}

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Face index operations",
}

var facesUploadCmd = &cobra.Command{
	Use:   "upload [zip]",
	Short: "Upload a ZIP of face images for indexing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := gatewayFromCmd(cmd).uploadFaces(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		if !res.Status {
			return fmt.Errorf("upload rejected")
		}
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Long:  `Reads a password from stdin and prints its bcrypt hash.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readLine(cmd)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	facesCmd.AddCommand(facesUploadCmd)

	loginCmd.Flags().String("email", "", "Operator email")
	loginCmd.Flags().String("password", "", "Operator password")
	loginCmd.Flags().Bool("password-stdin", false, "Read the password from stdin")
	_ = loginCmd.MarkFlagRequired("email")

	jobsListCmd.Flags().String("status", "", "Job status")
	jobsListCmd.Flags().String("failed-stage", "", "Failed stage (photo, lipsync, stitch, delivery)")
	jobsListCmd.Flags().String("user-id", "", "User ID")
	jobsListCmd.Flags().String("start-date", "", "Start date (YYYY-MM-DD)")
	jobsListCmd.Flags().String("end-date", "", "End date (YYYY-MM-DD)")
	jobsListCmd.Flags().Int("page", 1, "Page number")
	jobsListCmd.Flags().Int("page-size", 20, "Page size (10, 20, 50 or 100)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	if fromStdin {
		var err error
		if password, err = readLine(cmd); err != nil {
			return err
		}
	}
	if password == "" {
		return fmt.Errorf("password is required (--password or --password-stdin)")
	}

	token, err := gatewayFromCmd(cmd).login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
	fmt.Fprintf(os.Stderr, "token expires at %s\n", token.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func runJobsList(cmd *cobra.Command, args []string) error {
	params := map[string]string{}
	for flag, param := range map[string]string{
		"status":       "status",
		"failed-stage": "failed_stage",
		"user-id":      "user_id",
		"start-date":   "start_date",
		"end-date":     "end_date",
	} {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			params[param] = v
		}
	}
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	params["page"] = strconv.Itoa(page)
	params["page_size"] = strconv.Itoa(pageSize)

	res, err := gatewayFromCmd(cmd).listJobs(cmd.Context(), params)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tMOBILE\tSTATUS\tFAILED STAGE\tRETRIES\tCREATED")
	for _, j := range res.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.UserID, j.MobileNumber, j.Status, deref(j.FailedStage), derefInt(j.RetryCount), j.CreatedAt)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d jobs)\n", res.Page, res.TotalPages, res.Total)
	return nil
}

func readLine(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func derefInt(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}
