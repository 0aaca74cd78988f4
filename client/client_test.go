package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/govm-net/counter/client"
	"github.com/govm-net/counter/contracts/counter"
	_ "github.com/govm-net/counter/context/memory"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/provider"
	"github.com/govm-net/counter/types"
	"github.com/govm-net/counter/vm"
	"github.com/govm-net/counter/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var counterDescriptor = []byte(`{
  "functions": [
    {"name": "GetCount", "is_exported": true},
    {"name": "Increment", "is_exported": true},
    {"name": "Decrement", "is_exported": true}
  ]
}`)

// localSession deploys a counter on an in-memory engine and returns a
// client wired to it through a wallet provider
func localSession(t *testing.T, start uint64, opts client.Options) *client.Client {
	t.Helper()
	ctx := context.Background()
	engine, err := vm.NewEngine(&vm.Config{CodeManagerDir: t.TempDir(), ContextType: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	account, err := wallet.GenerateAccount()
	require.NoError(t, err)
	args, err := json.Marshal(map[string]uint64{"startValue": start})
	require.NoError(t, err)
	addr, err := engine.Deploy(ctx, account.Address(), counter.Source, args)
	require.NoError(t, err)
	descriptor, err := engine.Descriptor(addr)
	require.NoError(t, err)

	p := provider.NewWallet(provider.NewLocal(engine), []provider.Signer{account})
	return client.New(p, addr, descriptor, opts)
}

func connected(t *testing.T, ctrl *gomock.Controller) (*provider.MockProvider, *wallet.Account) {
	t.Helper()
	p := provider.NewMockProvider(ctrl)
	account, err := wallet.GenerateAccount()
	require.NoError(t, err)
	p.EXPECT().RequestAccounts(gomock.Any()).Return([]core.Address{account.Address()}, nil)
	p.EXPECT().Signer(gomock.Any()).Return(account, nil)
	return p, account
}

func TestMissingProvider(t *testing.T) {
	c := client.New(nil, core.Address{1}, counterDescriptor, client.Options{})
	c.Start(context.Background())

	assert.Equal(t, client.ViewState{LastError: "Please install MetaMask!"}, c.State())

	c.Increment(context.Background())
	assert.Equal(t, uint64(0), c.State().DisplayedCount)
}

func TestConnectFailures(t *testing.T) {
	t.Run("accounts rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := provider.NewMockProvider(ctrl)
		p.EXPECT().RequestAccounts(gomock.Any()).Return(nil, provider.ErrUserRejected)

		c := client.New(p, core.Address{1}, counterDescriptor, client.Options{})
		c.Start(context.Background())
		s := c.State()
		assert.False(t, s.Bound)
		assert.Equal(t, "Error connecting to contract: user rejected the request", s.LastError)
	})

	t.Run("no signer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := provider.NewMockProvider(ctrl)
		p.EXPECT().RequestAccounts(gomock.Any()).Return([]core.Address{{2}}, nil)
		p.EXPECT().Signer(gomock.Any()).Return(nil, errors.New("locked"))

		c := client.New(p, core.Address{1}, counterDescriptor, client.Options{})
		c.Start(context.Background())
		assert.Equal(t, "Error connecting to contract: locked", c.State().LastError)
	})

	t.Run("bad descriptor", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p, _ := connected(t, ctrl)

		c := client.New(p, core.Address{1}, []byte("{}"), client.Options{})
		c.Start(context.Background())
		s := c.State()
		assert.False(t, s.Bound)
		assert.Contains(t, s.LastError, "Error connecting to contract: invalid interface descriptor")
	})
}

func TestReadFailureIsLoggedOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, _ := connected(t, ctrl)
	p.EXPECT().CallContract(gomock.Any(), gomock.Any()).Return(nil, errors.New("node down"))

	c := client.New(p, core.Address{1}, counterDescriptor, client.Options{})
	c.Start(context.Background())
	assert.Equal(t, client.ViewState{Bound: true}, c.State())
}

func TestReadFailureSurfaced(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, _ := connected(t, ctrl)
	p.EXPECT().CallContract(gomock.Any(), gomock.Any()).Return(nil, errors.New("node down"))

	c := client.New(p, core.Address{1}, counterDescriptor, client.Options{SurfaceReadErrors: true})
	c.Start(context.Background())
	assert.Equal(t, "Error getting count: node down", c.State().LastError)
}

func TestStartReadsCount(t *testing.T) {
	c := localSession(t, 41, client.Options{})
	c.Start(context.Background())
	assert.Equal(t, client.ViewState{DisplayedCount: 41, Bound: true}, c.State())
}

func TestIncrementDoesNotRefresh(t *testing.T) {
	ctx := context.Background()
	c := localSession(t, 0, client.Options{})
	c.Start(ctx)

	c.Increment(ctx)
	s := c.State()
	assert.Empty(t, s.LastError)
	assert.Equal(t, uint64(0), s.DisplayedCount)

	c.Refresh(ctx)
	assert.Equal(t, uint64(1), c.State().DisplayedCount)
}

func TestRefreshAfterMutation(t *testing.T) {
	ctx := context.Background()
	c := localSession(t, 2, client.Options{RefreshAfterMutation: true})
	c.Start(ctx)

	c.Increment(ctx)
	assert.Equal(t, uint64(3), c.State().DisplayedCount)
	c.Decrement(ctx)
	assert.Equal(t, uint64(2), c.State().DisplayedCount)
}

func TestDecrementRevertReported(t *testing.T) {
	ctx := context.Background()
	c := localSession(t, 0, client.Options{})
	c.Start(ctx)

	c.Decrement(ctx)
	s := c.State()
	assert.Equal(t, "Error decrementing: execution reverted: Counter: cannot decrement below zero", s.LastError)

	// a later success leaves the error in place
	c.Increment(ctx)
	c.Refresh(ctx)
	s = c.State()
	assert.Equal(t, uint64(1), s.DisplayedCount)
	assert.Equal(t, "Error decrementing: execution reverted: Counter: cannot decrement below zero", s.LastError)
}

func TestIncrementSubmitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, account := connected(t, ctrl)
	p.EXPECT().CallContract(gomock.Any(), gomock.Any()).Return(json.RawMessage("0"), nil)
	p.EXPECT().PendingNonce(gomock.Any(), account.Address()).Return(uint64(0), nil)
	p.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(core.ZeroHash, errors.New("nonce mismatch"))

	c := client.New(p, core.Address{1}, counterDescriptor, client.Options{})
	c.Start(context.Background())
	c.Increment(context.Background())
	assert.Equal(t, "Error incrementing: nonce mismatch", c.State().LastError)
}

func TestMutationWithoutBindingIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := provider.NewMockProvider(ctrl)

	c := client.New(p, core.Address{1}, counterDescriptor, client.Options{})
	c.Increment(context.Background())
	c.Decrement(context.Background())
	c.Refresh(context.Background())
	assert.Equal(t, client.ViewState{}, c.State())
}

func TestDoubleTriggerDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, account := connected(t, ctrl)
	p.EXPECT().CallContract(gomock.Any(), gomock.Any()).Return(json.RawMessage("0"), nil)
	p.EXPECT().PendingNonce(gomock.Any(), account.Address()).Return(uint64(0), nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	hash := core.Hash{3}
	p.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *types.Transaction) (core.Hash, error) {
			close(entered)
			<-release
			return hash, nil
		}).Times(1)
	p.EXPECT().TransactionReceipt(gomock.Any(), hash).Return(&types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful}, nil)

	c := client.New(p, core.Address{1}, counterDescriptor, client.Options{})
	c.Start(context.Background())

	done := make(chan struct{})
	go func() {
		c.Increment(context.Background())
		close(done)
	}()
	<-entered
	c.Increment(context.Background())
	c.Decrement(context.Background())
	close(release)
	<-done
	assert.Empty(t, c.State().LastError)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, client.Render(&buf, client.ViewState{DisplayedCount: 3}))
	assert.Equal(t, "Count: 3\n[Increment] [Decrement]\n", buf.String())

	buf.Reset()
	require.NoError(t, client.Render(&buf, client.ViewState{LastError: "Please install MetaMask!"}))
	assert.Equal(t, "Count: 0\n[Increment] [Decrement]\nError: Please install MetaMask!\n", buf.String())
}
