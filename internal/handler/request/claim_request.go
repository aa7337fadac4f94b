package request

// SubmitClaimRequest 领取出勤证明
// connected 由前端钱包组件给出，未连接时不会发起交易
type SubmitClaimRequest struct {
	Address   string `json:"address" binding:"required,evm_addr"`
	Connected bool   `json:"connected"`
	FID       uint64 `json:"fid"`
}

// AddFrameRequest mini app 被宿主平台用户保存
type AddFrameRequest struct {
	FID     uint64 `json:"fid" binding:"required,min=1"`
	Address string `json:"address" binding:"omitempty,evm_addr"`
}
