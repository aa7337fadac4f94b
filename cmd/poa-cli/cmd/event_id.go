package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/crypto_util"
)

var eventIDCmd = &cobra.Command{
	Use:   "event-id <slug>",
	Short: "由活动标识计算 bytes32 eventId",
	Long:  `eventId = keccak256(lower(trim(slug)))`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := crypto_util.EventIDFromSlug(args[0])
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(id[:]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventIDCmd)
}
