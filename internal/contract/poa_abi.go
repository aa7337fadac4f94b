package contract

// POAABIJSON 出勤证明 (POA) NFT 合约中本服务用到的片段
//
//	mintAttendance(bytes32 eventId, bytes signature) → selector = keccak256("mintAttendance(bytes32,bytes)")[:4]
const POAABIJSON = `[
	{
		"type": "function",
		"name": "mintAttendance",
		"stateMutability": "nonpayable",
		"inputs": [
			{ "name": "eventId", "type": "bytes32" },
			{ "name": "signature", "type": "bytes" }
		],
		"outputs": []
	}
]`

const MintAttendance = "mintAttendance"

// 演示部署 (Base Sepolia)
const (
	DemoContractAddress = "0x696a22e358e861253B7aB7CBa22c3e2667CF9b5B"
	DemoEventID         = "0x0000000000000000000000000000000000000000000000000000000000000001"
	BaseSepoliaChainID  = 84532
)
