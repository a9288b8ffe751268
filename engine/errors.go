// Package engine implements the state transition logic of the overlay:
// one handler per transaction kind, each validating against the
// consensus gate and the state books before mutating them.
//
// Handlers have a uniform shape:
//  1. re-check the (type, version, height) gate
//  2. validate payload fields and state preconditions
//  3. apply the paired ledger and registry mutations
//
// A failed precondition yields a negative, kind-scoped result code and
// no mutation. A failed mutation after preconditions passed is book
// corruption and panics with an InvariantError.
package engine

import (
	"fmt"
)

// Result is the outcome of one state transition. Zero is success; a
// negative value is a rejection code scoped to the failing concern.
type Result int

// Success marks a fully applied transition.
const Success Result = 0

// Rejection code families. Codes inside a family are formed by
// subtracting a small offset, so related rejections stay adjacent.
const (
	errPacket      Result = -50000
	errProperty    Result = -51000
	errSend        Result = -60000
	errTradeOffer  Result = -70000
	errMetaDEx     Result = -80000
	errTokens      Result = -82000
	errContractDEx Result = -83000
	errOracle      Result = -84000
	errChannels    Result = -85000
	errKYC         Result = -86000
	errCrowdsale   Result = -87000
)

// Rejected reports whether the result is a rejection.
func (r Result) Rejected() bool { return r < 0 }

// Packet-level rejections.
const (
	ResultTypeNotAllowed   = errPacket - 22
	ResultNotAuthorized    = errPacket - 51
	ResultFeatureOpFailed  = errPacket - 54
	ResultUnknownSubAction = errPacket - 999
	ResultUnknownVersion   = errPacket - 500
)

// Send rejections.
const (
	ResultSendSanity         = errSend - 21
	ResultSendTypeNotAllowed = errSend - 22
	ResultValueOutOfRange    = errSend - 23
	ResultPropertyNotFound   = errSend - 24
	ResultInsufficientFunds  = errSend - 25
	ResultSendAllNoTally     = errSend - 54
	ResultSendAllZeroMoved   = errSend - 55
)

// Property and crowdsale registry rejections.
const (
	ResultBlockNotFound         = errProperty - 20
	ResultSPTypeNotAllowed      = errProperty - 22
	ResultSPValueOutOfRange     = errProperty - 23
	ResultSPPropertyNotFound    = errProperty - 24
	ResultInvalidPropertyType   = errProperty - 36
	ResultEmptyName             = errProperty - 37
	ResultDeadlinePassed        = errProperty - 38
	ResultSenderHasCrowdsale    = errProperty - 39
	ResultNoCrowdsale           = errProperty - 40
	ResultCrowdsaleMismatch     = errProperty - 41
	ResultNotManagedProperty    = errProperty - 42
	ResultNotIssuer             = errProperty - 43
	ResultGrantExceedsSupply    = errProperty - 44
	ResultEmptyReceiver         = errProperty - 45
	ResultReceiverHasCrowdsale  = errProperty - 46
	ResultSPTokensTypeMismatch  = errContractDEx - 21
	ResultCollateralMismatch    = errContractDEx - 22
	ResultInsufficientContracts = errContractDEx - 23
	ResultContractWindowClosed  = errContractDEx - 24
)

// Token (managed issuance, channel funding) rejections.
const (
	ResultTokensBlockNotFound   = errTokens - 20
	ResultTokensTypeNotAllowed  = errTokens - 22
	ResultTokensPropertyMissing = errTokens - 24
	ResultTokensShortReserve    = errTokens - 25
	ResultWithdrawalTooLarge    = errTokens - 26
)

// DEx offer rejections.
const (
	ResultOfferTypeNotAllowed = errTradeOffer - 22
	ResultOfferExists         = errTradeOffer - 48
	ResultOfferMissing        = errTradeOffer - 49
)

// Token-for-token trading rejections.
const (
	ResultMetaTypeNotAllowed = errMetaDEx - 22
	ResultSameProperty       = errMetaDEx - 29
	ResultForSaleMissing     = errMetaDEx - 31
	ResultDesiredMissing     = errMetaDEx - 32
	ResultForSaleOutOfRange  = errMetaDEx - 34
	ResultDesiredOutOfRange  = errMetaDEx - 35
)

// Contract rejections.
const (
	ResultContractTypeNotAllowed = errContractDEx - 20
)

// Oracle rejections.
const (
	ResultOracleSelfBackup = errOracle - 10
	ResultOracleMissing    = errOracle - 11
	ResultNotOracleIssuer  = errOracle - 12
	ResultOracleNoReceiver = errOracle - 13
	ResultNotOracleBackup  = errOracle - 14
)

// Channel rejections.
const (
	ResultNotChannelAddress      = errChannels - 10
	ResultChannelSameProperty    = errChannels - 11
	ResultChannelPropertyMissing = errChannels - 13
	ResultChannelDesiredMissing  = errChannels - 14
	ResultNoChannelForSender     = errChannels - 15
	ResultChannelExpired         = errChannels - 16
	ResultChannelShortReserve    = errChannels - 17
	ResultChannelShortFees       = errChannels - 18
)

// KYC rejections.
const (
	ResultSenderNotAttested   = errKYC - 10
	ResultReceiverNotAttested = errKYC - 20
	ResultKYCTypeNotAllowed   = errKYC - 22
	ResultAlreadyRegistered   = errKYC - 30
	ResultNotRegistrar        = errKYC - 31
)

// Crowdsale participation rejections.
const (
	ResultNoActiveCrowdsale   = errCrowdsale - 1
	ResultWrongCrowdsaleToken = errCrowdsale - 2
	ResultCrowdsaleZeroTokens = errCrowdsale - 3
)

// InvariantError marks a mutation failure after its preconditions
// passed. The books can no longer be trusted; processing must stop.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Op, e.Detail)
}

// fatalf panics with an InvariantError.
func fatalf(op, format string, args ...interface{}) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}
