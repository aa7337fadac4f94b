package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/keystore"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/signer"
)

var (
	keystoreOut      string
	keystoreMnemonic string
	keystoreWords    int
	keystoreLight    bool
	keystorePath     string
)

var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "管理 relayer 的加密 keystore",
}

// keystoreNewCmd 加密 relayer 助记词并写入文件
var keystoreNewCmd = &cobra.Command{
	Use:   "new",
	Short: "创建 relayer keystore",
	Long: `使用 scrypt + AES-GCM 加密 relayer 助记词。
未指定 --mnemonic 时生成新的助记词。密码从终端读取，或通过环境变量 RELAYER_PASSWORD 传入。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic := keystoreMnemonic
		if mnemonic == "" {
			m, err := signer.GenerateMnemonic(keystoreWords / 3 * 32)
			if err != nil {
				return err
			}
			mnemonic = m
		}

		relayer, err := signer.FromMnemonic(mnemonic, keystorePath)
		if err != nil {
			return err
		}

		password, err := readPassword(cmd, true)
		if err != nil {
			return err
		}

		n := keystore.StandardScryptN
		if keystoreLight {
			n = keystore.LightScryptN
		}
		k, err := keystore.Encrypt(mnemonic, keystore.KindMnemonic, password, n)
		if err != nil {
			return err
		}
		if err := k.SaveToFile(keystoreOut); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Keystore:        %s\n", keystoreOut)
		fmt.Fprintf(out, "Relayer address: %s\n", relayer.Address().Hex())
		if keystoreMnemonic == "" {
			fmt.Fprintln(out, "---------------------------------------------------")
			fmt.Fprintf(out, "助记词 (Mnemonic):\n%s\n", mnemonic)
			fmt.Fprintln(out, "请离线备份助记词，relayer 账户需要预先充值 Gas。")
		}
		return nil
	},
}

// readPassword 优先读取 RELAYER_PASSWORD，否则从终端读取
func readPassword(cmd *cobra.Command, confirm bool) (string, error) {
	if pw := os.Getenv("RELAYER_PASSWORD"); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; set RELAYER_PASSWORD")
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	if len(pw) == 0 {
		return "", errors.New("empty password")
	}

	if confirm {
		fmt.Fprint(cmd.ErrOrStderr(), "Repeat password: ")
		again, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		if string(again) != string(pw) {
			return "", errors.New("passwords do not match")
		}
	}
	return string(pw), nil
}

func init() {
	keystoreNewCmd.Flags().StringVarP(&keystoreOut, "out", "o", "relayer.keystore.json", "输出文件")
	keystoreNewCmd.Flags().StringVar(&keystoreMnemonic, "mnemonic", "", "已有助记词 (为空则生成)")
	keystoreNewCmd.Flags().IntVar(&keystoreWords, "words", 24, "生成助记词的词数 (12 或 24)")
	keystoreNewCmd.Flags().BoolVar(&keystoreLight, "light", false, "使用轻量 scrypt 参数 (仅用于开发)")
	keystoreNewCmd.Flags().StringVar(&keystorePath, "path", signer.DefaultPath, "BIP-44 派生路径")

	keystoreCmd.AddCommand(keystoreNewCmd)
	rootCmd.AddCommand(keystoreCmd)
}
