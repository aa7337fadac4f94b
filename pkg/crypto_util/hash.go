package crypto_util

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Keccak256 计算输入的 Keccak256 哈希值 (以太坊使用的哈希算法)
func Keccak256(data []byte) [32]byte {
	var out [32]byte
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	copy(out[:], hash.Sum(nil))
	return out
}

// EventIDFromSlug 将活动标识 (如 "devcon-2025") 映射为合约使用的 bytes32 eventId
// 规范化: 去空白并转小写，保证同一活动在不同客户端得到相同的 id
func EventIDFromSlug(slug string) [32]byte {
	return Keccak256([]byte(strings.ToLower(strings.TrimSpace(slug))))
}

// ClaimKey 计算 (链, 合约, 活动, 账户) 的幂等键，用于缓存与去重
// Blake3 比 Keccak 快，这里不需要与链上一致
func ClaimKey(chainID int64, contract, account string, eventID [32]byte) string {
	h := blake3.New(32, nil)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(chainID) >> (56 - 8*i))
	}
	h.Write(buf[:])
	h.Write([]byte(strings.ToLower(contract)))
	h.Write([]byte(strings.ToLower(account)))
	h.Write(eventID[:])
	return hex.EncodeToString(h.Sum(nil))
}
