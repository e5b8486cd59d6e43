package local_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isabella232/anoma"
	"github.com/isabella232/anoma/local"
	"github.com/isabella232/anoma/shell"
	"github.com/isabella232/anoma/storage"
	"github.com/isabella232/anoma/vm"
)

func startShell(t *testing.T) *local.Client {
	t.Helper()
	store, err := storage.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	requests := make(chan anoma.Request)
	sh := shell.New(requests, store, vm.NewBuiltinEngine())
	go sh.Run()
	t.Cleanup(func() { close(requests) })

	return local.NewClient(requests)
}

func TestRoundTrip(t *testing.T) {
	client := startShell(t)
	ctx := context.Background()

	require.NoError(t, client.InitChain(ctx, "anoma-test-chain"))

	state, err := client.GetInfo(ctx)
	require.NoError(t, err)
	require.Nil(t, state)

	require.NoError(t, client.BeginBlock(ctx, [32]byte{1}, 1))
	require.NoError(t, client.EndBlock(ctx, 1))
	result, err := client.CommitBlock(ctx)
	require.NoError(t, err)
	require.NoError(t, result.Err)

	state, err = client.GetInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Equal(t, result.Root, state.Root)
}

func TestCancelledSend(t *testing.T) {
	// Nobody consumes the channel, so the send blocks until the
	// context gives up.
	client := local.NewClient(make(chan anoma.Request))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetInfo(ctx)
	require.ErrorIs(t, err, context.Canceled)

	err = client.InitChain(ctx, "anoma-test-chain")
	require.ErrorIs(t, err, context.Canceled)
}
