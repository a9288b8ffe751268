package engine

import (
	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/state"
)

// applyCreateOracleContract registers an oracle-settled futures
// contract. The sender becomes the oracle; the receiver becomes the
// backup able to take over the feed.
func (e *Engine) applyCreateOracleContract(tx *envelope.CreateOracleContract) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultBlockNotFound
	}
	if tx.Sender == tx.Receiver {
		return ResultOracleSelfBackup
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultSPTypeNotAllowed
	}
	if tx.Name == "" {
		return ResultEmptyName
	}

	propType := state.PropertyTypeOracleContract
	if tx.BlocksUntilExpiration == 0 {
		propType = state.PropertyTypePerpetualOracle
	}

	e.books.Registry.Put(&state.Property{
		Issuer:                tx.Sender,
		TxID:                  tx.TxID,
		PropType:              propType,
		Name:                  tx.Name,
		Manual:                true,
		InitBlock:             tx.Block,
		BlocksUntilExpiration: tx.BlocksUntilExpiration,
		NotionalSize:          tx.NotionalSize,
		CollateralCurrency:    tx.CollateralCurrency,
		MarginRequirement:     tx.MarginRequirement,
		InverseQuoted:         tx.InverseQuoted,
		BackupAddress:         tx.Receiver,
		KYCIDs:                tx.KYCIDs,
		CreationBlock:         blockHash,
		UpdateBlock:           blockHash,
	})
	return Success
}

// oracleContract fetches an entry and checks it is oracle-settled.
func (e *Engine) oracleContract(id uint32) (state.Property, Result) {
	contract, ok := e.books.Registry.Get(id)
	if !ok || !contract.IsOracle() {
		return state.Property{}, ResultOracleMissing
	}
	return contract, Success
}

// applyChangeOracleRef hands the oracle role to the receiver.
func (e *Engine) applyChangeOracleRef(tx *envelope.ChangeOracleRef) Result {
	blockHash, ok := e.blockHash(&tx.Meta)
	if !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
	}
	contract, res := e.oracleContract(tx.ContractID)
	if res.Rejected() {
		return res
	}
	if contract.Issuer != tx.Sender {
		return ResultNotOracleIssuer
	}
	if tx.Receiver == "" {
		return ResultOracleNoReceiver
	}

	contract.Issuer = tx.Receiver
	contract.UpdateBlock = blockHash
	if err := e.books.Registry.Update(contract.ID, &contract); err != nil {
		fatalf("change oracle", "update of contract %d: %v", contract.ID, err)
	}
	return Success
}

// applySetOracle appends a price reading for the current block. History
// already written never changes.
func (e *Engine) applySetOracle(tx *envelope.SetOracle) Result {
	if _, ok := e.blockHash(&tx.Meta); !ok {
		return ResultTokensBlockNotFound
	}
	if !e.gateAllows(&tx.Meta) {
		return ResultTokensTypeNotAllowed
	}
	contract, res := e.oracleContract(tx.ContractID)
	if res.Rejected() {
		return res
	}
	if contract.Issuer != tx.Sender {
		return ResultNotOracleIssuer
	}

	e.books.Oracles.Append(tx.ContractID, tx.Block, state.PricePoint{
		High:  tx.High,
		Low:   tx.Low,
		Close: tx.Close,
	})
	return Success
}

// applyOracleBackup lets the backup address seize the oracle role.
func (e *Engine) applyOracleBackup(tx *envelope.OracleBackup) Result {
	contract, res := e.oracleContract(tx.ContractID)
	if res.Rejected() {
		return res
	}
	if contract.BackupAddress != tx.Sender {
		return ResultNotOracleBackup
	}

	contract.Issuer = tx.Sender
	if err := e.books.Registry.Update(contract.ID, &contract); err != nil {
		fatalf("oracle backup", "update of contract %d: %v", contract.ID, err)
	}
	return Success
}

// applyCloseOracle retires an oracle contract, collapsing its trading
// window to the current block.
func (e *Engine) applyCloseOracle(tx *envelope.CloseOracle) Result {
	contract, res := e.oracleContract(tx.ContractID)
	if res.Rejected() {
		return res
	}
	if contract.BackupAddress != tx.Sender {
		return ResultNotOracleBackup
	}

	contract.BlocksUntilExpiration = 1
	contract.InitBlock = 0
	if err := e.books.Registry.Update(contract.ID, &contract); err != nil {
		fatalf("close oracle", "update of contract %d: %v", contract.ID, err)
	}
	return Success
}
