package contract

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrInvalidEventID = errors.New("event id must be 32 bytes of hex")

var (
	poaOnce sync.Once
	poaABI  abi.ABI
	poaErr  error
)

// POAABI 解析一次后复用
func POAABI() (abi.ABI, error) {
	poaOnce.Do(func() {
		poaABI, poaErr = abi.JSON(strings.NewReader(POAABIJSON))
	})
	return poaABI, poaErr
}

// Call 合约调用描述: 目标地址 + ABI + 函数名 + 有序参数
// 构造后不再修改，同一会话内每次提交都相同
type Call struct {
	Address      common.Address
	ABI          abi.ABI
	FunctionName string
	Args         []any
}

// MintAttendanceCall 构造固定的 mintAttendance(eventId, signature) 调用
// signature 为空字节串 (演示合约不校验)
func MintAttendanceCall(contractAddr common.Address, eventID [32]byte) (Call, error) {
	parsed, err := POAABI()
	if err != nil {
		return Call{}, fmt.Errorf("parse poa abi: %w", err)
	}
	return Call{
		Address:      contractAddr,
		ABI:          parsed,
		FunctionName: MintAttendance,
		Args:         []any{eventID, []byte{}},
	}, nil
}

// ParseEventID 解析 0x 开头的 32 字节 hex
func ParseEventID(s string) ([32]byte, error) {
	var id [32]byte
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != 32 {
		return id, fmt.Errorf("%w: %q", ErrInvalidEventID, s)
	}
	copy(id[:], b)
	return id, nil
}

func (c Call) To() common.Address {
	return c.Address
}

// EncodeInput ABI 编码 calldata (selector + args)
func (c Call) EncodeInput() ([]byte, error) {
	return c.ABI.Pack(c.FunctionName, c.Args...)
}

// Selector 4 字节函数选择器
func (c Call) Selector() ([]byte, error) {
	m, ok := c.ABI.Methods[c.FunctionName]
	if !ok {
		return nil, fmt.Errorf("method %s not in abi", c.FunctionName)
	}
	return m.ID, nil
}

// Descriptor 对外展示用的调用描述 (参数以 hex 表示)
type Descriptor struct {
	Address      string   `json:"address"`
	FunctionName string   `json:"function_name"`
	Signature    string   `json:"signature"`
	Args         []string `json:"args"`
	Calldata     string   `json:"calldata"`
}

func (c Call) Describe() (Descriptor, error) {
	data, err := c.EncodeInput()
	if err != nil {
		return Descriptor{}, err
	}

	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		switch v := a.(type) {
		case [32]byte:
			args = append(args, hexutil.Encode(v[:]))
		case []byte:
			args = append(args, hexutil.Encode(v))
		default:
			args = append(args, fmt.Sprint(v))
		}
	}

	return Descriptor{
		Address:      c.Address.Hex(),
		FunctionName: c.FunctionName,
		Signature:    c.ABI.Methods[c.FunctionName].Sig,
		Args:         args,
		Calldata:     hexutil.Encode(data),
	}, nil
}
