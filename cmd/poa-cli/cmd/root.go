package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "poa-cli",
	Short: "出勤证明 (POA) 命令行工具",
	Long: `POA mini app 的运维与调试工具。
可以查看 mintAttendance 调用数据、计算活动 id、管理 relayer 的加密 keystore，
以及通过服务端 API 发起一次领取。`,
	SilenceUsage: true,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
