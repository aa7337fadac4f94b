package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/config"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/signer"
)

var relayerCfg config.RelayerConfig

var relayerCmd = &cobra.Command{
	Use:   "relayer",
	Short: "relayer 账户工具",
}

// relayerAddressCmd 打印 relayer 地址，用于充值 Gas
var relayerAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "打印 relayer 地址",
	Long:  `按 --private-key > --mnemonic > --keystore 的优先级加载 relayer 并打印地址。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := relayerCfg
		if cfg.KeystorePath != "" && cfg.PrivateKey == "" && cfg.Mnemonic == "" {
			pw, err := readPassword(cmd, false)
			if err != nil {
				return err
			}
			cfg.Password = pw
		}

		s, err := signer.Load(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.Address().Hex())
		return nil
	},
}

func init() {
	f := relayerAddressCmd.Flags()
	f.StringVar(&relayerCfg.PrivateKey, "private-key", "", "hex 私钥")
	f.StringVar(&relayerCfg.Mnemonic, "mnemonic", "", "BIP-39 助记词")
	f.StringVar(&relayerCfg.KeystorePath, "keystore", "", "keystore 文件")
	f.StringVar(&relayerCfg.DerivationPath, "path", signer.DefaultPath, "BIP-44 派生路径")

	relayerCmd.AddCommand(relayerAddressCmd)
	rootCmd.AddCommand(relayerCmd)
}
