package signer

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/config"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/keystore"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	// 与 testMnemonic 在 m/44'/60'/0'/0/0 下的地址
	testMnemonicAddr = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

	testPrivKey     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testPrivKeyAddr = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

func TestFromMnemonic(t *testing.T) {
	s, err := FromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testMnemonicAddr), s.Address())

	// h 后缀写法等价
	s2, err := FromMnemonic(testMnemonic, "m/44h/60h/0h/0/0")
	require.NoError(t, err)
	assert.Equal(t, s.Address(), s2.Address())

	_, err = FromMnemonic("not a mnemonic", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = FromMnemonic(testMnemonic, "m/44'/x/0")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestFromPrivateKeyHex(t *testing.T) {
	s, err := FromPrivateKeyHex(testPrivKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testPrivKeyAddr), s.Address())
}

func TestLoadPriority(t *testing.T) {
	_, err := Load(config.RelayerConfig{})
	assert.ErrorIs(t, err, ErrNoCredentials)

	s, err := Load(config.RelayerConfig{PrivateKey: testPrivKey, Mnemonic: testMnemonic})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testPrivKeyAddr), s.Address())
}

func TestLoadFromKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayer.json")
	k, err := keystore.Encrypt(testMnemonic, keystore.KindMnemonic, "pw", keystore.LightScryptN)
	require.NoError(t, err)
	require.NoError(t, k.SaveToFile(path))

	s, err := Load(config.RelayerConfig{KeystorePath: path, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testMnemonicAddr), s.Address())

	_, err = Load(config.RelayerConfig{KeystorePath: path, Password: "bad"})
	assert.ErrorIs(t, err, keystore.ErrMACMismatch)
}

func TestSignTxRecoversSender(t *testing.T) {
	s, err := FromPrivateKeyHex(testPrivKey)
	require.NoError(t, err)

	chainID := big.NewInt(84532)
	to := common.HexToAddress("0x696a22e358e861253B7aB7CBa22c3e2667CF9b5B")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     1,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       100000,
		To:        &to,
	})

	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)
}
