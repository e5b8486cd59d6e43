package types

import (
	"errors"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// ErrEmptyTxCode is returned when a decoded envelope carries no
// executable code.
var ErrEmptyTxCode = errors.New("transaction envelope has no code")

// Tx is the transaction envelope: opaque executable code plus an
// optional opaque data payload. The shell never interprets either;
// both are handed to the sandbox runners.
type Tx struct {
	Code []byte `cramberry:"1"`
	Data []byte `cramberry:"2"`
}

// DecodeTx strictly decodes a transaction envelope. Malformed bytes
// are rejected, never partially interpreted.
func DecodeTx(raw []byte) (Tx, error) {
	var tx Tx
	if err := cramberry.Unmarshal(raw, &tx); err != nil {
		return Tx{}, err
	}
	if len(tx.Code) == 0 {
		return Tx{}, ErrEmptyTxCode
	}
	return tx, nil
}

// Encode serializes the envelope to its canonical wire form.
func (t Tx) Encode() ([]byte, error) {
	return cramberry.Marshal(t)
}
