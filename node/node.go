// Package node assembles a runnable shell: persistent storage,
// genesis seeding, the execution engine and the gRPC service the
// consensus engine connects to.
package node

import (
	"context"
	"net"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/config"
	anomagrpc "github.com/isabella232/anoma/grpc"
	"github.com/isabella232/anoma/pkg/log"
	"github.com/isabella232/anoma/shell"
	"github.com/isabella232/anoma/storage"
	"github.com/isabella232/anoma/types"
	"github.com/isabella232/anoma/vm"
)

// Run starts the node and blocks until ctx is cancelled or a
// component fails. The shell runs on its own goroutine behind the
// request channel; the gRPC service is the only way in.
func Run(ctx context.Context, cfg config.Config) error {
	if err := log.Init(cfg.Log); err != nil {
		return errors.Wrap(err, "failed to init logging")
	}
	logger := log.L().Named("node")

	store, err := storage.Open(cfg.DBDir())
	if err != nil {
		return err
	}
	defer store.Close()

	last, err := store.LoadLastState()
	if err != nil {
		return err
	}
	if last == nil {
		if err := SeedGenesis(store, cfg.Genesis); err != nil {
			return err
		}
		logger.Info("seeded genesis accounts", zap.Int("accounts", len(cfg.Genesis)))
	} else {
		logger.Info("resuming from committed state",
			zap.Uint64("height", uint64(last.Height)),
			zap.String("root", last.Root.String()))
	}

	requests := make(chan anoma.Request, 16)
	sh := shell.New(requests, store, vm.NewBuiltinEngine(),
		shell.WithGasLimits(cfg.Gas.TxLimit, cfg.Gas.BlockLimit))

	lis, err := net.Listen("tcp", cfg.Engine.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.Engine.ListenAddr)
	}
	gs := grpc.NewServer()
	anomagrpc.NewBridge(requests).Register(gs)
	logger.Info("listening for consensus engine", zap.String("addr", lis.Addr().String()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.Serve(lis)
	})
	g.Go(func() error {
		err := sh.Run()
		if errors.Is(err, anoma.ErrChannelClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		gs.GracefulStop()
		close(requests)
		return ctx.Err()
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// SeedGenesis installs the configured accounts' validity predicates
// and balances. The writes land with the first committed block.
func SeedGenesis(store *storage.Storage, accounts []config.GenesisAccount) error {
	for _, acc := range accounts {
		addr, err := acc.Address()
		if err != nil {
			return err
		}
		if acc.Predicate != "" {
			if err := store.Write(types.PredicateKey(addr), []byte(acc.Predicate)); err != nil {
				return errors.Wrapf(err, "failed to seed predicate for %s", addr)
			}
		}
		for token, amount := range acc.Balances {
			key := types.Key(addr, vm.BalanceSubKeyPrefix+token)
			if err := store.Write(key, vm.EncodeBalance(amount)); err != nil {
				return errors.Wrapf(err, "failed to seed balance for %s", addr)
			}
		}
	}
	return nil
}

// Reset deletes the node's persistent state and the consensus
// engine's local data, wiping the node back to genesis.
func Reset(cfg config.Config) error {
	if err := os.RemoveAll(cfg.DBDir()); err != nil {
		return errors.Wrap(err, "failed to remove db dir")
	}
	if err := os.RemoveAll(cfg.EngineDir()); err != nil {
		return errors.Wrap(err, "failed to remove engine dir")
	}
	return nil
}
