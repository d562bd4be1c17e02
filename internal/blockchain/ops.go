package blockchain

import "gfvledger/internal/sequencer"

type argKind uint8

const (
	argAddress argKind = iota
	argUint64
	argBool
	// 256-bit unsigned token amount.
	argAmount
	// short UTF-8 string stored length-prefixed in a ref cell.
	argText
)

type argSpec struct {
	name string
	kind argKind
}

// operation maps an op code to the ledger method it invokes and the layout
// of its arguments after the query id.
type operation struct {
	code     uint32
	contract string
	method   string
	args     []argSpec
}

const (
	OpStartFundraising    uint32 = 0x13370101
	OpEndFundraiser       uint32 = 0x13370102
	OpStartMinting        uint32 = 0x13370103
	OpAddToWhitelist      uint32 = 0x13370104
	OpRemoveFromWhitelist uint32 = 0x13370105
	OpBuyTicket           uint32 = 0x13370106
	OpRequestRefund       uint32 = 0x13370107
	OpClaimTokens         uint32 = 0x13370108

	OpStake                      uint32 = 0x13370201
	OpUnstake                    uint32 = 0x13370202
	OpClaimRewards               uint32 = 0x13370203
	OpUpdateRewardsRatePerSecond uint32 = 0x13370204

	OpAuthorize         uint32 = 0x13370301
	OpRevoke            uint32 = 0x13370302
	OpSetApprovalForAll uint32 = 0x13370303
	OpMintEmergency     uint32 = 0x13370304
	OpInit              uint32 = 0x13370305
	OpRegisterUnit      uint32 = 0x13370306
	OpUpdateSharePrice  uint32 = 0x13370307
	OpAssetMint         uint32 = 0x13370308
	OpSafeTransferFrom  uint32 = 0x13370309

	OpPaymentTransfer     uint32 = 0x13370401
	OpPaymentApprove      uint32 = 0x13370402
	OpPaymentMint         uint32 = 0x13370403
	OpPaymentTransferFrom uint32 = 0x13370404

	OpAddAdminRights     uint32 = 0x13370501
	OpRevokeAdminRights  uint32 = 0x13370502
	OpRewardTransfer     uint32 = 0x13370503
	OpRewardApprove      uint32 = 0x13370504
	OpRewardTransferFrom uint32 = 0x13370505
	OpRewardMint         uint32 = 0x13370506

	// OpPhaseNotice is sent by the ledger itself when the campaign phase changes.
	OpPhaseNotice uint32 = 0x13370021
)

var operations = []operation{
	{code: OpStartFundraising, contract: sequencer.ContractFundraiser, method: "startFundraising"},
	{code: OpEndFundraiser, contract: sequencer.ContractFundraiser, method: "endFundraiser"},
	{code: OpStartMinting, contract: sequencer.ContractFundraiser, method: "startMinting"},
	{code: OpAddToWhitelist, contract: sequencer.ContractFundraiser, method: "addToWhitelist", args: []argSpec{{"address", argAddress}}},
	{code: OpRemoveFromWhitelist, contract: sequencer.ContractFundraiser, method: "removeFromWhitelist", args: []argSpec{{"address", argAddress}}},
	{code: OpBuyTicket, contract: sequencer.ContractFundraiser, method: "buyTicket", args: []argSpec{{"count", argUint64}}},
	{code: OpRequestRefund, contract: sequencer.ContractFundraiser, method: "requestRefund"},
	{code: OpClaimTokens, contract: sequencer.ContractFundraiser, method: "claimTokens"},

	{code: OpStake, contract: sequencer.ContractStaking, method: "stake", args: []argSpec{{"amount", argUint64}}},
	{code: OpUnstake, contract: sequencer.ContractStaking, method: "unstake", args: []argSpec{{"amount", argUint64}}},
	{code: OpClaimRewards, contract: sequencer.ContractStaking, method: "claimRewards"},
	{code: OpUpdateRewardsRatePerSecond, contract: sequencer.ContractStaking, method: "updateRewardsRatePerSecond", args: []argSpec{{"rate", argAmount}}},

	{code: OpAuthorize, contract: sequencer.ContractAsset, method: "authorize", args: []argSpec{{"address", argAddress}}},
	{code: OpRevoke, contract: sequencer.ContractAsset, method: "revoke", args: []argSpec{{"address", argAddress}}},
	{code: OpSetApprovalForAll, contract: sequencer.ContractAsset, method: "setApprovalForAll", args: []argSpec{{"operator", argAddress}, {"approved", argBool}}},
	{code: OpMintEmergency, contract: sequencer.ContractAsset, method: "mintEmergency", args: []argSpec{{"to", argAddress}, {"unitId", argUint64}, {"amount", argUint64}}},
	{code: OpInit, contract: sequencer.ContractAsset, method: "init"},
	{code: OpRegisterUnit, contract: sequencer.ContractAsset, method: "registerUnit", args: []argSpec{{"unitId", argUint64}, {"sharePrice", argAmount}, {"name", argText}}},
	{code: OpUpdateSharePrice, contract: sequencer.ContractAsset, method: "updateSharePrice", args: []argSpec{{"unitId", argUint64}, {"sharePrice", argAmount}}},
	{code: OpAssetMint, contract: sequencer.ContractAsset, method: "mint", args: []argSpec{{"to", argAddress}, {"unitId", argUint64}, {"amount", argUint64}}},
	{code: OpSafeTransferFrom, contract: sequencer.ContractAsset, method: "safeTransferFrom", args: []argSpec{{"from", argAddress}, {"to", argAddress}, {"unitId", argUint64}, {"amount", argUint64}}},

	{code: OpPaymentTransfer, contract: sequencer.ContractPayment, method: "transfer", args: []argSpec{{"to", argAddress}, {"amount", argAmount}}},
	{code: OpPaymentApprove, contract: sequencer.ContractPayment, method: "approve", args: []argSpec{{"spender", argAddress}, {"amount", argAmount}}},
	{code: OpPaymentMint, contract: sequencer.ContractPayment, method: "mint", args: []argSpec{{"to", argAddress}, {"amount", argAmount}}},
	{code: OpPaymentTransferFrom, contract: sequencer.ContractPayment, method: "transferFrom", args: []argSpec{{"from", argAddress}, {"to", argAddress}, {"amount", argAmount}}},

	{code: OpAddAdminRights, contract: sequencer.ContractReward, method: "addAdminRights", args: []argSpec{{"address", argAddress}}},
	{code: OpRevokeAdminRights, contract: sequencer.ContractReward, method: "revokeAdminRights", args: []argSpec{{"address", argAddress}}},
	{code: OpRewardTransfer, contract: sequencer.ContractReward, method: "transfer", args: []argSpec{{"to", argAddress}, {"amount", argAmount}}},
	{code: OpRewardApprove, contract: sequencer.ContractReward, method: "approve", args: []argSpec{{"spender", argAddress}, {"amount", argAmount}}},
	{code: OpRewardTransferFrom, contract: sequencer.ContractReward, method: "transferFrom", args: []argSpec{{"from", argAddress}, {"to", argAddress}, {"amount", argAmount}}},
	{code: OpRewardMint, contract: sequencer.ContractReward, method: "mint", args: []argSpec{{"to", argAddress}, {"amount", argAmount}}},
}

var (
	operationsByCode   = make(map[uint32]operation, len(operations))
	operationsByMethod = make(map[string]operation, len(operations))
)

func init() {
	for _, op := range operations {
		operationsByCode[op.code] = op
		operationsByMethod[op.contract+"."+op.method] = op
	}
}

// Known reports whether code is a ledger call op code.
func Known(code uint32) bool {
	_, ok := operationsByCode[code]
	return ok
}
