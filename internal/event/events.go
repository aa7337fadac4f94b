package event

// TopicClaimMinted 出勤证明铸造成功
const TopicClaimMinted = "poa_events_claim"

// ClaimMintedEvent 领取成功事件
// Topic: poa_events_claim
type ClaimMintedEvent struct {
	RequestID       string `json:"request_id"`
	Address         string `json:"address"`
	ContractAddress string `json:"contract_address"`
	EventID         string `json:"event_id"`
	ChainID         int64  `json:"chain_id"`
	TxHash          string `json:"tx_hash"`
	BlockNumber     uint64 `json:"block_number"`
	FID             uint64 `json:"fid,omitempty"`
}
