package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	userID     string
	userOutput string
	userFormat string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Query persons enrolled on the device",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users, or a single user with --user-id",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		users, err := api.GetUsers(cmd.Context(), userID)
		if err != nil {
			fail("Error fetching users: %s", explain(err))
		}

		if userOutput != "" {
			exportRecords(userOutput, userFormat, users)
			return
		}

		if jsonOutput {
			printJSON(users)
			return
		}

		if len(users) == 0 {
			fmt.Println("No users found.")
			return
		}
		printRecords(users, "employeeNo", "name", "userType", "gender")
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)

	usersListCmd.Flags().StringVar(&userID, "user-id", "", "Employee number")
	usersListCmd.Flags().StringVarP(&userOutput, "output", "o", "", "Export users to a .json or .csv file")
	usersListCmd.Flags().StringVar(&userFormat, "format", "", "Export format (json or csv), defaults to the file extension")
}
