package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/crypto_util"
)

var (
	calldataContract string
	calldataEventID  string
	calldataSlug     string
	calldataJSON     bool
)

// calldataCmd 打印 mintAttendance 调用描述
var calldataCmd = &cobra.Command{
	Use:   "calldata",
	Short: "打印 mintAttendance 的调用数据",
	Long:  `按给定的合约与活动 id 构造 mintAttendance(bytes32 eventId, bytes signature) 调用，签名参数固定为空字节。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(calldataContract) {
			return fmt.Errorf("invalid contract address %q", calldataContract)
		}

		var eventID [32]byte
		if calldataSlug != "" {
			eventID = crypto_util.EventIDFromSlug(calldataSlug)
		} else {
			id, err := contract.ParseEventID(calldataEventID)
			if err != nil {
				return err
			}
			eventID = id
		}

		call, err := contract.MintAttendanceCall(common.HexToAddress(calldataContract), eventID)
		if err != nil {
			return err
		}
		d, err := call.Describe()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if calldataJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		}
		fmt.Fprintf(out, "Contract:  %s\n", d.Address)
		fmt.Fprintf(out, "Function:  %s\n", d.Signature)
		for i, a := range d.Args {
			fmt.Fprintf(out, "Arg[%d]:    %s\n", i, a)
		}
		fmt.Fprintf(out, "Calldata:  %s\n", d.Calldata)
		return nil
	},
}

func init() {
	calldataCmd.Flags().StringVar(&calldataContract, "contract", contract.DemoContractAddress, "POA 合约地址")
	calldataCmd.Flags().StringVar(&calldataEventID, "event-id", contract.DemoEventID, "32 字节活动 id (hex)")
	calldataCmd.Flags().StringVar(&calldataSlug, "slug", "", "用活动标识计算 id，优先于 --event-id")
	calldataCmd.Flags().BoolVar(&calldataJSON, "json", false, "以 JSON 输出")
	rootCmd.AddCommand(calldataCmd)
}
