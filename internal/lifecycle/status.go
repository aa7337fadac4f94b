// Package lifecycle describes the named statuses a transaction executor
// reports while a submitted call moves from submission to confirmation.
package lifecycle

import (
	"github.com/ethereum/go-ethereum/core/types"
)

// StatusName 执行器上报的状态名
type StatusName string

const (
	StatusInit                StatusName = "init"
	StatusError               StatusName = "error"
	StatusTransactionIdle     StatusName = "transactionIdle"
	StatusBuildingTransaction StatusName = "buildingTransaction"
	StatusTransactionPending  StatusName = "transactionPending"
	StatusLegacyExecuted      StatusName = "transactionLegacyExecuted"
	StatusSuccess             StatusName = "success"
	StatusReset               StatusName = "reset"
)

// Phase 状态归类后的封闭集合，调用方必须处理全部四种
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePending Phase = "pending"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Phase 未知状态名按 error 处理
func (n StatusName) Phase() Phase {
	switch n {
	case StatusInit, StatusTransactionIdle, StatusReset:
		return PhaseIdle
	case StatusBuildingTransaction, StatusTransactionPending, StatusLegacyExecuted:
		return PhasePending
	case StatusSuccess:
		return PhaseSuccess
	default:
		return PhaseError
	}
}

// Terminal success / error 之后执行器不会再上报
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseError
}

// 错误码
const (
	CodeSponsorshipRequired = "SPONSORSHIP_REQUIRED"
	CodeBuildFailed         = "BUILD_FAILED"
	CodeSendFailed          = "SEND_FAILED"
	CodeReverted            = "REVERTED"
	CodeReceiptTimeout      = "RECEIPT_TIMEOUT"
	CodeCanceled            = "CANCELED"
)

type TxError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *TxError) Error() string {
	return e.Code + ": " + e.Message
}

// Data 状态附带的数据，各字段按状态选填
type Data struct {
	TxHashes    []string `json:"tx_hashes,omitempty"`
	BlockNumber uint64   `json:"block_number,omitempty"`
	GasUsed     uint64   `json:"gas_used,omitempty"`
	Error       *TxError `json:"error,omitempty"`
}

// Status 一次生命周期上报
type Status struct {
	Name StatusName `json:"status_name"`
	Data Data       `json:"status_data"`
}

func (s Status) Phase() Phase {
	return s.Name.Phase()
}

// TxHash 最近一笔交易 hash
func (s Status) TxHash() string {
	if n := len(s.Data.TxHashes); n > 0 {
		return s.Data.TxHashes[n-1]
	}
	return ""
}

func Building() Status {
	return Status{Name: StatusBuildingTransaction}
}

func Pending(txHash string) Status {
	return Status{Name: StatusTransactionPending, Data: Data{TxHashes: []string{txHash}}}
}

func Failed(code, message string) Status {
	return Status{Name: StatusError, Data: Data{Error: &TxError{Code: code, Message: message}}}
}

// FromReceipt 根据回执状态得到 success 或 reverted error
func FromReceipt(r *types.Receipt) Status {
	data := Data{
		TxHashes: []string{r.TxHash.Hex()},
		GasUsed:  r.GasUsed,
	}
	if r.BlockNumber != nil {
		data.BlockNumber = r.BlockNumber.Uint64()
	}
	if r.Status == types.ReceiptStatusSuccessful {
		return Status{Name: StatusSuccess, Data: data}
	}
	data.Error = &TxError{Code: CodeReverted, Message: "transaction reverted"}
	return Status{Name: StatusError, Data: data}
}
