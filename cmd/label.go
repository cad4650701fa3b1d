package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/andresmejia3/biopass/internal/access"
	"github.com/andresmejia3/biopass/internal/utils"
	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:   "label <user_id> <name>",
	Short: "Rename an enrolled user",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			utils.Die("Invalid user ID", err, nil)
		}
		runLabel(cmd.Context(), id, args[1])
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
}

func runLabel(ctx context.Context, id int64, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		utils.Die("Invalid name", access.ErrInvalidName, nil)
	}

	if err := DB.Rename(ctx, id, name); err != nil {
		utils.Die("Failed to rename user", err, nil)
	}

	fmt.Printf("✅ User %d labeled as '%s'\n", id, name)
}
