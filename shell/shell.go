// Package shell implements the application half of the consensus
// protocol: a single-threaded event loop that consumes requests from
// the consensus engine and drives the write log, gas accounting,
// transaction execution, validity predicate checks and storage
// commits.
package shell

import (
	"go.uber.org/zap"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/gas"
	"github.com/isabella232/anoma/pkg/log"
	"github.com/isabella232/anoma/storage"
	"github.com/isabella232/anoma/types"
	"github.com/isabella232/anoma/vm"
	"github.com/isabella232/anoma/writelog"
	"github.com/pkg/errors"
)

// EndBlocker runs at the end of every block, after the last ApplyTx
// and before CommitBlock. An error fails the EndBlock request.
type EndBlocker func(height types.BlockHeight) error

// Option configures a Shell at construction time.
type Option func(*Shell)

// WithGasLimits overrides the default per-transaction and per-block
// gas limits.
func WithGasLimits(txLimit, blockLimit uint64) Option {
	return func(s *Shell) {
		s.gas = gas.NewBlockGasMeterWithLimits(txLimit, blockLimit)
	}
}

// WithEndBlocker appends an end-of-block hook. Hooks run in
// registration order.
func WithEndBlocker(f EndBlocker) Option {
	return func(s *Shell) {
		s.endBlockers = append(s.endBlockers, f)
	}
}

// Shell owns all mutable chain state. Exactly one goroutine runs
// Run(); everything else talks to it through the request channel, so
// no handler needs locking.
type Shell struct {
	requests    <-chan anoma.Request
	store       *storage.Storage
	gas         *gas.BlockGasMeter
	log         *writelog.WriteLog
	txRunner    vm.TxRunner
	vpRunner    vm.VPRunner
	guard       lifecycleGuard
	endBlockers []EndBlocker
	logger      *zap.Logger
}

// New builds a shell reading from requests and executing transactions
// and validity predicates on engine.
func New(requests <-chan anoma.Request, store *storage.Storage, engine vm.Engine, opts ...Option) *Shell {
	s := &Shell{
		requests: requests,
		store:    store,
		gas:      gas.NewBlockGasMeter(),
		log:      writelog.New(),
		txRunner: vm.NewTxRunner(engine),
		vpRunner: vm.NewVPRunner(engine),
		logger:   log.L().Named("shell"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run consumes requests until the channel closes, which ends the loop
// with ErrChannelClosed. Any other returned error is fatal: it means
// a reply could not be delivered and the consensus engine and the
// shell no longer agree on the protocol state.
func (s *Shell) Run() error {
	for {
		req, ok := <-s.requests
		if !ok {
			return anoma.ErrChannelClosed
		}
		if err := s.handle(req); err != nil {
			return err
		}
	}
}

func (s *Shell) handle(req anoma.Request) error {
	switch r := req.(type) {
	case anoma.GetInfoRequest:
		return reply(r.Reply, "GetInfo", s.lastState())
	case anoma.InitChainRequest:
		return reply(r.Reply, "InitChain", s.initChain(r.ChainID))
	case anoma.MempoolValidateRequest:
		return reply(r.Reply, "MempoolValidate", s.mempoolValidate(r.Tx, r.Kind))
	case anoma.BeginBlockRequest:
		return reply(r.Reply, "BeginBlock", s.beginBlock(r.Hash, r.Height))
	case anoma.ApplyTxRequest:
		return reply(r.Reply, "ApplyTx", s.applyTx(r.Tx))
	case anoma.EndBlockRequest:
		return reply(r.Reply, "EndBlock", s.endBlock(r.Height))
	case anoma.CommitBlockRequest:
		return reply(r.Reply, "CommitBlock", s.commitBlock())
	default:
		return errors.Errorf("unknown request type %T", req)
	}
}

// reply delivers a result on a single-use reply channel. The channel
// is buffered with capacity one, so the send only fails if the
// requester broke the single-use contract.
func reply[T any](ch chan<- T, msg string, result T) error {
	if ch == nil {
		return &anoma.ReplyError{Msg: msg}
	}
	select {
	case ch <- result:
		return nil
	default:
		return &anoma.ReplyError{Msg: msg}
	}
}

func (s *Shell) lastState() anoma.InfoResult {
	state, err := s.store.LoadLastState()
	if err != nil {
		s.logger.Error("failed to load last committed state", zap.Error(err))
		return anoma.InfoResult{}
	}
	if state == nil {
		s.logger.Info("no committed state found, chain starts from genesis")
		return anoma.InfoResult{}
	}
	s.logger.Info("last committed state",
		zap.Uint64("height", uint64(state.Height)),
		zap.String("root", state.Root.String()))
	return anoma.InfoResult{State: state}
}

func (s *Shell) initChain(chainID string) error {
	if err := s.store.SetChainID(chainID); err != nil {
		return err
	}
	s.logger.Info("chain initialized", zap.String("chainID", chainID))
	return nil
}

// mempoolValidate is the cheap admission check: a strict envelope
// decode with no execution. First-seen and recheck transactions
// currently run the same check; the kind is kept on the wire so the
// recheck path can grow its own rules without a protocol change.
func (s *Shell) mempoolValidate(txBytes []byte, _ anoma.MempoolTxKind) error {
	if _, err := types.DecodeTx(txBytes); err != nil {
		return &anoma.DecodingError{Err: err}
	}
	return nil
}

func (s *Shell) beginBlock(hash types.BlockHash, height types.BlockHeight) error {
	if err := s.guard.beginBlock(); err != nil {
		return err
	}
	s.gas.Reset()
	if err := s.store.BeginBlock(hash, height); err != nil {
		s.guard.failBegin()
		return err
	}
	s.logger.Debug("block opened", zap.Uint64("height", uint64(height)))
	return nil
}

func (s *Shell) endBlock(height types.BlockHeight) error {
	if err := s.guard.requireOpen("EndBlock"); err != nil {
		return err
	}
	for _, f := range s.endBlockers {
		if err := f(height); err != nil {
			return errors.Wrapf(err, "end blocker failed at height %d", height)
		}
	}
	return nil
}

func (s *Shell) commitBlock() anoma.CommitBlockResult {
	if err := s.guard.commitBlock(); err != nil {
		return anoma.CommitBlockResult{Err: err}
	}
	if err := s.log.CommitBlock(s.store); err != nil {
		return anoma.CommitBlockResult{
			Root: s.store.MerkleRoot(),
			Err:  errors.Wrap(err, "failed to flush write log"),
		}
	}
	if err := s.store.Commit(); err != nil {
		s.logger.Error("failed to commit block", zap.Error(err))
		return anoma.CommitBlockResult{Root: s.store.MerkleRoot(), Err: err}
	}
	root := s.store.MerkleRoot()
	height := s.store.Height()
	blockMtc.Inc()
	heightMtc.Set(float64(height))
	s.logger.Info("block committed",
		zap.Uint64("height", uint64(height)),
		zap.String("root", root.String()))
	return anoma.CommitBlockResult{Root: root}
}
