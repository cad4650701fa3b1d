package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/andresmejia3/biopass/internal/utils"
	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <user_id>",
	Short: "Remove an enrolled user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			utils.Die("Invalid user ID", err, nil)
		}
		if !deleteYes && !confirm(bufio.NewReader(os.Stdin), fmt.Sprintf("⚠️  Delete user %d?", id)) {
			fmt.Println("Aborted.")
			return
		}
		if err := DB.Delete(cmd.Context(), id); err != nil {
			utils.Die("Failed to delete user", err, nil)
		}
		fmt.Printf("🗑️  User %d deleted\n", id)
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
