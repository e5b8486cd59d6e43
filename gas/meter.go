// Package gas meters computation consumed by transactions and blocks.
package gas

import "errors"

// Default metering limits and rates.
const (
	// DefaultTxGasLimit bounds the gas a single transaction may consume.
	DefaultTxGasLimit uint64 = 10_000_000
	// DefaultBlockGasLimit bounds the gas all transactions in one block
	// may consume together.
	DefaultBlockGasLimit uint64 = 10_000_000_000
	// TxGasPerByte is the base fee charged per byte of a transaction's
	// wire encoding.
	TxGasPerByte uint64 = 2
)

var (
	// ErrTxGasExceeded is returned when a charge would push the
	// transaction counter past its limit.
	ErrTxGasExceeded = errors.New("transaction gas limit exceeded")
	// ErrBlockGasExceeded is returned when finalizing a transaction
	// would push the block counter past its limit.
	ErrBlockGasExceeded = errors.New("block gas limit exceeded")
)

// BlockGasMeter tracks gas with two counters: a block-scoped total and
// a transaction-scoped running total. Both only grow until reset. A
// failed charge leaves both counters untouched; no partial charge is
// ever visible.
type BlockGasMeter struct {
	txLimit    uint64
	blockLimit uint64

	blockGas uint64
	txGas    uint64
}

// NewBlockGasMeter creates a meter with the default limits.
func NewBlockGasMeter() *BlockGasMeter {
	return NewBlockGasMeterWithLimits(DefaultTxGasLimit, DefaultBlockGasLimit)
}

// NewBlockGasMeterWithLimits creates a meter with explicit limits.
// A zero limit falls back to the default.
func NewBlockGasMeterWithLimits(txLimit, blockLimit uint64) *BlockGasMeter {
	if txLimit == 0 {
		txLimit = DefaultTxGasLimit
	}
	if blockLimit == 0 {
		blockLimit = DefaultBlockGasLimit
	}
	return &BlockGasMeter{txLimit: txLimit, blockLimit: blockLimit}
}

// Add charges g against the in-flight transaction.
func (m *BlockGasMeter) Add(g uint64) error {
	if m.txGas+g > m.txLimit {
		return ErrTxGasExceeded
	}
	m.txGas += g
	return nil
}

// AddBaseTransactionFee charges the size-proportional base fee for a
// transaction of byteLen encoded bytes.
func (m *BlockGasMeter) AddBaseTransactionFee(byteLen int) error {
	return m.Add(uint64(byteLen) * TxGasPerByte)
}

// FinalizeTransaction closes out the transaction counter, folds it
// into the block total and returns the amount charged. If the block
// limit would be exceeded the block total is left unchanged and
// ErrBlockGasExceeded is returned; the transaction counter is zeroed
// on every path so a failed transaction leaves no partial gas state.
func (m *BlockGasMeter) FinalizeTransaction() (uint64, error) {
	used := m.txGas
	m.txGas = 0
	if m.blockGas+used > m.blockLimit {
		return used, ErrBlockGasExceeded
	}
	m.blockGas += used
	return used, nil
}

// Reset zeroes both counters at the start of a block.
func (m *BlockGasMeter) Reset() {
	m.blockGas = 0
	m.txGas = 0
}

// BlockGas returns the gas consumed by the block so far.
func (m *BlockGasMeter) BlockGas() uint64 { return m.blockGas }

// TxGas returns the gas consumed by the in-flight transaction so far.
func (m *BlockGasMeter) TxGas() uint64 { return m.txGas }
