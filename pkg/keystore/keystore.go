package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

// SecretKind 标记 keystore 中保存的 relayer 凭据类型
type SecretKind string

const (
	KindMnemonic   SecretKind = "mnemonic"
	KindPrivateKey SecretKind = "private_key"
)

var ErrMACMismatch = errors.New("invalid password or corrupted data (MAC mismatch)")

// EncryptedKeyJSON 参照 Ethereum Keystore V3 的结构风格
// 保存的是 relayer 的助记词或私钥 (Kind 区分)，而不是单个账户文件
type EncryptedKeyJSON struct {
	Crypto  CryptoJSON `json:"crypto"`
	Id      string     `json:"id"`
	Kind    SecretKind `json:"kind"`
	Version int        `json:"version"`
}

type CryptoJSON struct {
	Cipher       string       `json:"cipher"`     // "aes-256-gcm"
	CipherText   string       `json:"ciphertext"` // Hex string
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"` // "scrypt"
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

type CipherParams struct {
	IV string `json:"iv"`
}

type KDFParams struct {
	DKLen int    `json:"dklen"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	Salt  string `json:"salt"`
}

// Scrypt 参数; LightScryptN 仅用于测试与本地开发
const (
	StandardScryptN = 1 << 18
	LightScryptN    = 1 << 12
	scryptR         = 8
	scryptP         = 1
	scryptDKLen     = 32
)

// Encrypt 使用密码加密 relayer 凭据
func Encrypt(secret string, kind SecretKind, password string, scryptN int) (*EncryptedKeyJSON, error) {
	salt := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptDKLen)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(secret), nil)

	return &EncryptedKeyJSON{
		Version: 3,
		Id:      uuid.NewString(),
		Kind:    kind,
		Crypto: CryptoJSON{
			Cipher:       "aes-256-gcm",
			CipherText:   hex.EncodeToString(ciphertext),
			CipherParams: CipherParams{IV: hex.EncodeToString(nonce)},
			KDF:          "scrypt",
			KDFParams: KDFParams{
				DKLen: scryptDKLen,
				N:     scryptN,
				R:     scryptR,
				P:     scryptP,
				Salt:  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(mac(derivedKey, ciphertext)),
		},
	}, nil
}

// Decrypt 解密 keystore，返回明文凭据
func Decrypt(k *EncryptedKeyJSON, password string) (string, error) {
	if k.Crypto.KDF != "scrypt" {
		return "", fmt.Errorf("unsupported kdf %q", k.Crypto.KDF)
	}

	salt, err := hex.DecodeString(k.Crypto.KDFParams.Salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt: %w", err)
	}
	nonce, err := hex.DecodeString(k.Crypto.CipherParams.IV)
	if err != nil {
		return "", fmt.Errorf("invalid iv: %w", err)
	}
	ciphertext, err := hex.DecodeString(k.Crypto.CipherText)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext: %w", err)
	}
	wantMAC, err := hex.DecodeString(k.Crypto.MAC)
	if err != nil {
		return "", fmt.Errorf("invalid mac: %w", err)
	}

	p := k.Crypto.KDFParams
	derivedKey, err := scrypt.Key([]byte(password), salt, p.N, p.R, p.P, p.DKLen)
	if err != nil {
		return "", fmt.Errorf("scrypt: %w", err)
	}

	if subtle.ConstantTimeCompare(wantMAC, mac(derivedKey, ciphertext)) != 1 {
		return "", ErrMACMismatch
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

// SaveToFile 保存到文件 (0600)
func (k *EncryptedKeyJSON) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}

// LoadFromFile 从文件加载
func LoadFromFile(filename string) (*EncryptedKeyJSON, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var k EncryptedKeyJSON
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse keystore %s: %w", filename, err)
	}
	return &k, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// mac = SHA256(derivedKey || ciphertext)
func mac(derivedKey, ciphertext []byte) []byte {
	h := sha256.New()
	h.Write(derivedKey)
	h.Write(ciphertext)
	return h.Sum(nil)
}
