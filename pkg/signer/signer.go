// Package signer loads the relayer account that pays gas for sponsored claims
// and signs the transactions built by the executor.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/config"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/keystore"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// DefaultPath BIP-44 以太坊第一个账户
const DefaultPath = "m/44'/60'/0'/0/0"

var (
	ErrNoCredentials   = errors.New("relayer: no private key, mnemonic or keystore configured")
	ErrInvalidMnemonic = errors.New("relayer: invalid mnemonic")
	ErrInvalidPath     = errors.New("relayer: invalid derivation path")
)

// Signer 持有 relayer 私钥
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func New(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address relayer 地址 (交易 from)
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx 使用与链 ID 匹配的最新签名器 (支持 EIP-1559)
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// Load 按 private_key > mnemonic > keystore 的优先级加载 relayer
func Load(cfg config.RelayerConfig) (*Signer, error) {
	switch {
	case cfg.PrivateKey != "":
		return FromPrivateKeyHex(cfg.PrivateKey)
	case cfg.Mnemonic != "":
		return FromMnemonic(cfg.Mnemonic, cfg.DerivationPath)
	case cfg.KeystorePath != "":
		k, err := keystore.LoadFromFile(cfg.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("relayer: load keystore: %w", err)
		}
		secret, err := keystore.Decrypt(k, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("relayer: decrypt keystore: %w", err)
		}
		if k.Kind == keystore.KindPrivateKey {
			return FromPrivateKeyHex(secret)
		}
		return FromMnemonic(secret, cfg.DerivationPath)
	}
	return nil, ErrNoCredentials
}

func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("relayer: parse private key: %w", err)
	}
	return New(key), nil
}

// FromMnemonic BIP-39 助记词 -> Seed -> BIP-32 派生 -> secp256k1 私钥
func FromMnemonic(mnemonic, path string) (*Signer, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	if path == "" {
		path = DefaultPath
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("relayer: master key: %w", err)
	}

	child, err := derivePath(master, path)
	if err != nil {
		return nil, err
	}
	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("relayer: child key: %w", err)
	}
	return New(priv.ToECDSA()), nil
}

// GenerateMnemonic 生成 relayer 助记词 (bitSize 128 = 12 词, 256 = 24 词)
func GenerateMnemonic(bitSize int) (string, error) {
	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", fmt.Errorf("生成熵失败: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// derivePath 支持 m/44'/60'/0'/0/0 与 m/44h/60h/0h/0/0 两种写法
func derivePath(key *hdkeychain.ExtendedKey, path string) (*hdkeychain.ExtendedKey, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "m/")
	if path == "" || path == "m" {
		return key, nil
	}

	current := key
	for _, segment := range strings.Split(path, "/") {
		hardened := strings.HasSuffix(segment, "'") || strings.HasSuffix(segment, "h")
		if hardened {
			segment = segment[:len(segment)-1]
		}

		val, err := strconv.ParseUint(segment, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidPath, segment)
		}
		index := uint32(val)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}

		current, err = current.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("relayer: derive %d: %w", index, err)
		}
	}
	return current, nil
}
