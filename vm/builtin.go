package vm

import (
	"context"
	"encoding/binary"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/isabella232/anoma/types"
)

// Built-in code names. The BuiltinEngine resolves code bytes against
// this registry instead of interpreting bytecode.
const (
	// CodeTransfer moves a token balance between two accounts. Its
	// data payload is a cramberry-encoded TransferData.
	CodeTransfer = "tx/transfer"

	// CodeVPAccept accepts unconditionally.
	CodeVPAccept = "vp/accept"
	// CodeVPReject rejects unconditionally.
	CodeVPReject = "vp/reject"
	// CodeVPPanic panics, simulating a crashing sandbox.
	CodeVPPanic = "vp/panic"
	// CodeVPBalance accepts a balance decrease only when the tx data
	// names the owner as the transfer source.
	CodeVPBalance = "vp/balance"
)

// BalanceSubKeyPrefix prefixes per-token balance sub-keys, e.g.
// "balance/eth".
const BalanceSubKeyPrefix = "balance/"

// ErrUnknownCode is returned when code bytes name no built-in.
var ErrUnknownCode = errors.New("unknown built-in code")

// ErrInsufficientFunds aborts a transfer whose source balance cannot
// cover the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// TransferData is the payload of a CodeTransfer transaction.
type TransferData struct {
	Source types.Address `cramberry:"1"`
	Target types.Address `cramberry:"2"`
	Token  string        `cramberry:"3"`
	Amount uint64        `cramberry:"4"`
}

// BuiltinEngine is a deterministic, in-process stand-in for the
// sandboxed execution engine.
type BuiltinEngine struct{}

// NewBuiltinEngine creates the built-in engine.
func NewBuiltinEngine() BuiltinEngine { return BuiltinEngine{} }

func (BuiltinEngine) ExecuteTx(ctx context.Context, env TxEnv) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch string(env.Code) {
	case CodeTransfer:
		return runTransfer(env)
	default:
		return errors.Wrapf(ErrUnknownCode, "%q", env.Code)
	}
}

func (BuiltinEngine) EvalPredicate(ctx context.Context, env PredicateEnv) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	switch string(env.Code) {
	case CodeVPAccept:
		return true, nil
	case CodeVPReject:
		return false, nil
	case CodeVPPanic:
		panic("vp/panic invoked")
	case CodeVPBalance:
		return evalBalancePredicate(env)
	default:
		return false, errors.Wrapf(ErrUnknownCode, "%q", env.Code)
	}
}

func runTransfer(env TxEnv) error {
	var data TransferData
	if err := cramberry.Unmarshal(env.Data, &data); err != nil {
		return errors.Wrap(err, "decode transfer data")
	}
	if data.Token == "" {
		return errors.New("transfer data is incomplete")
	}
	if err := data.Source.Validate(); err != nil {
		return errors.Wrap(err, "transfer source")
	}
	if err := data.Target.Validate(); err != nil {
		return errors.Wrap(err, "transfer target")
	}

	srcKey := types.Key(data.Source, BalanceSubKeyPrefix+data.Token)
	dstKey := types.Key(data.Target, BalanceSubKeyPrefix+data.Token)

	srcBal, err := readBalance(env.State, srcKey)
	if err != nil {
		return err
	}
	if srcBal < data.Amount {
		return errors.Wrapf(ErrInsufficientFunds, "%s has %d %s, needs %d",
			data.Source, srcBal, data.Token, data.Amount)
	}
	dstBal, err := readBalance(env.State, dstKey)
	if err != nil {
		return err
	}

	env.Writer.Write(srcKey, encodeBalance(srcBal-data.Amount))
	env.Writer.Write(dstKey, encodeBalance(dstBal+data.Amount))
	return nil
}

// evalBalancePredicate guards the owner's token balances: any
// decrease must be authorized by the tx data naming the owner as the
// transfer source. Increases and unrelated key changes are accepted.
func evalBalancePredicate(env PredicateEnv) (bool, error) {
	for _, key := range env.ChangedKeys {
		if key.Addr != env.Owner || len(key.SubKey) < len(BalanceSubKeyPrefix) ||
			key.SubKey[:len(BalanceSubKeyPrefix)] != BalanceSubKeyPrefix {
			continue
		}
		pre, err := readBalance(env.Pre, key)
		if err != nil {
			return false, err
		}
		post, err := readBalance(env.Post, key)
		if err != nil {
			return false, err
		}
		if post >= pre {
			continue
		}
		var data TransferData
		if err := cramberry.Unmarshal(env.Data, &data); err != nil {
			return false, nil
		}
		if data.Source != env.Owner {
			return false, nil
		}
	}
	return true, nil
}

func readBalance(state StateReader, key types.StorageKey) (uint64, error) {
	raw, found, err := state.Read(key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, errors.Errorf("balance at %s is %d bytes, want 8", key, len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

func encodeBalance(amount uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, amount)
	return buf
}

// EncodeBalance renders a token balance in its storage form. Exposed
// for genesis seeding and tests.
func EncodeBalance(amount uint64) []byte { return encodeBalance(amount) }

// DecodeBalance parses a stored token balance.
func DecodeBalance(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, errors.Errorf("balance is %d bytes, want 8", len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// TransferTx builds the wire encoding of a transfer transaction.
func TransferTx(source, target types.Address, token string, amount uint64) ([]byte, error) {
	data, err := cramberry.Marshal(TransferData{
		Source: source,
		Target: target,
		Token:  token,
		Amount: amount,
	})
	if err != nil {
		return nil, err
	}
	return types.Tx{Code: []byte(CodeTransfer), Data: data}.Encode()
}
