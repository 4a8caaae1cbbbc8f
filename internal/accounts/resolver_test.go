// =============================
// File: internal/accounts/resolver_test.go
// =============================
package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akorchak/launchpad-client/internal/chain"
	"github.com/akorchak/launchpad-client/internal/launchpad"
	"github.com/akorchak/launchpad-client/internal/metadata"
)

// fakeClient implements chain.Client with per-method hooks; unset methods
// report not-found so tests exercise the fallback chain.
type fakeClient struct {
	getAccountInfo    func(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	getTokenAccounts  func(ctx context.Context, owner, mint solana.PublicKey) ([]*rpc.TokenAccount, error)
	getProgramAccount func(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)

	ownerScanCalls   int
	programScanCalls int
}

func (f *fakeClient) GetRecentBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *fakeClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if f.getAccountInfo != nil {
		return f.getAccountInfo(ctx, pubkey)
	}
	return nil, chain.ErrAccountNotFound
}

func (f *fakeClient) GetMultipleAccounts(context.Context, []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	return &rpc.GetMultipleAccountsResult{}, nil
}

func (f *fakeClient) GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]*rpc.TokenAccount, error) {
	f.ownerScanCalls++
	if f.getTokenAccounts != nil {
		return f.getTokenAccounts(ctx, owner, mint)
	}
	return nil, nil
}

func (f *fakeClient) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	f.programScanCalls++
	if f.getProgramAccount != nil {
		return f.getProgramAccount(ctx, programID, opts)
	}
	return nil, nil
}

func (f *fakeClient) GetTokenAccountBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	return nil, chain.ErrAccountNotFound
}

func (f *fakeClient) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (uint64, error) {
	return 0, nil
}

func (f *fakeClient) GetSignatureStatuses(context.Context, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return nil, nil
}

func (f *fakeClient) SimulateTransaction(context.Context, *solana.Transaction) (*chain.SimulationResult, error) {
	return &chain.SimulationResult{}, nil
}

func (f *fakeClient) SendTransaction(context.Context, *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, errors.New("not implemented")
}

func (f *fakeClient) SendTransactionWithOpts(context.Context, *solana.Transaction, chain.TransactionOptions) (solana.Signature, error) {
	return solana.Signature{}, errors.New("not implemented")
}

func (f *fakeClient) WaitForTransactionConfirmation(context.Context, solana.Signature, rpc.CommitmentType) error {
	return nil
}

var _ chain.Client = (*fakeClient)(nil)

// fakeStore is an in-memory metadata.Store.
type fakeStore struct {
	records map[string]*metadata.Record
}

func (s *fakeStore) Get(_ context.Context, mint string) (*metadata.Record, error) {
	return s.records[mint], nil
}

func (s *fakeStore) Upsert(_ context.Context, mint string, rec *metadata.Record) error {
	if s.records == nil {
		s.records = make(map[string]*metadata.Record)
	}
	s.records[mint] = rec
	return nil
}

func tokenAccountData(mint, owner solana.PublicKey) []byte {
	data := make([]byte, launchpad.TokenAccountDataLen)
	copy(data[launchpad.TokenAccountMintOffset:], mint.Bytes())
	copy(data[launchpad.TokenAccountOwnerOffset:], owner.Bytes())
	return data
}

func TestResolver_OwnerScanHit(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()

	client := &fakeClient{
		getTokenAccounts: func(_ context.Context, owner, m solana.PublicKey) ([]*rpc.TokenAccount, error) {
			assert.Equal(t, mint, m)
			return []*rpc.TokenAccount{{Pubkey: vault}}, nil
		},
	}
	r := NewResolver(client, nil, time.Minute, zap.NewNop())

	got, err := r.ResolvePoolTokenAccount(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, vault, got)
	assert.Equal(t, 0, client.programScanCalls)
}

func TestResolver_CacheSkipsSecondLookup(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()

	client := &fakeClient{
		getTokenAccounts: func(context.Context, solana.PublicKey, solana.PublicKey) ([]*rpc.TokenAccount, error) {
			return []*rpc.TokenAccount{{Pubkey: vault}}, nil
		},
	}
	r := NewResolver(client, nil, time.Minute, zap.NewNop())

	_, err := r.ResolvePoolTokenAccount(context.Background(), mint)
	require.NoError(t, err)
	_, err = r.ResolvePoolTokenAccount(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, 1, client.ownerScanCalls)
}

func TestResolver_MetadataStoreHit(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	authority, _, err := launchpad.DerivePoolAuthority(mint)
	require.NoError(t, err)
	vault := solana.NewWallet().PublicKey()

	store := &fakeStore{records: map[string]*metadata.Record{
		mint.String(): {PoolTokenAccount: vault.String()},
	}}
	client := &fakeClient{
		getAccountInfo: func(_ context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
			require.Equal(t, vault, pubkey)
			return &rpc.GetAccountInfoResult{Value: &rpc.Account{
				Data: rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, authority)),
			}}, nil
		},
	}
	r := NewResolver(client, store, time.Minute, zap.NewNop())

	got, err := r.ResolvePoolTokenAccount(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, vault, got)
	assert.Equal(t, 0, client.ownerScanCalls)
}

func TestResolver_StaleStoreRecordFallsThrough(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	stranger := solana.NewWallet().PublicKey()
	poisoned := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()

	store := &fakeStore{records: map[string]*metadata.Record{
		mint.String(): {PoolTokenAccount: poisoned.String()},
	}}
	// The stored account exists on chain but is owned by the wrong authority;
	// the resolver must reject it and keep scanning.
	client := &fakeClient{
		getAccountInfo: func(_ context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
			if pubkey.Equals(poisoned) {
				return &rpc.GetAccountInfoResult{Value: &rpc.Account{
					Data: rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, stranger)),
				}}, nil
			}
			return nil, chain.ErrAccountNotFound
		},
		getTokenAccounts: func(context.Context, solana.PublicKey, solana.PublicKey) ([]*rpc.TokenAccount, error) {
			return []*rpc.TokenAccount{{Pubkey: vault}}, nil
		},
	}
	r := NewResolver(client, store, time.Minute, zap.NewNop())

	got, err := r.ResolvePoolTokenAccount(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, vault, got)
	assert.Equal(t, 1, client.ownerScanCalls)
}

func TestResolver_ProgramScanFindsAuthorityOwned(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	authority, _, err := launchpad.DerivePoolAuthority(mint)
	require.NoError(t, err)
	vault := solana.NewWallet().PublicKey()
	stranger := solana.NewWallet().PublicKey()

	client := &fakeClient{
		getProgramAccount: func(context.Context, solana.PublicKey, *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
			return rpc.GetProgramAccountsResult{
				{Pubkey: solana.NewWallet().PublicKey(), Account: &rpc.Account{
					Data: rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, stranger)),
				}},
				{Pubkey: vault, Account: &rpc.Account{
					Data: rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, authority)),
				}},
			}, nil
		},
	}
	r := NewResolver(client, nil, time.Minute, zap.NewNop())

	got, err := r.ResolvePoolTokenAccount(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, vault, got)
}

func TestResolver_AuthorityMismatch(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	stranger := solana.NewWallet().PublicKey()
	wrongAccount := solana.NewWallet().PublicKey()

	client := &fakeClient{
		getProgramAccount: func(context.Context, solana.PublicKey, *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
			return rpc.GetProgramAccountsResult{
				{Pubkey: wrongAccount, Account: &rpc.Account{
					Data: rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, stranger)),
				}},
			}, nil
		},
	}
	r := NewResolver(client, nil, time.Minute, zap.NewNop())

	_, err := r.ResolvePoolTokenAccount(context.Background(), mint)
	require.Error(t, err)

	var mismatch *AuthorityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, mint, mismatch.Mint)
	assert.Contains(t, mismatch.Candidates, wrongAccount)
	assert.Contains(t, mismatch.Error(), wrongAccount.String())

	// A mismatch must not be reported as a plain absence.
	var notFound *NotFoundError
	assert.False(t, errors.As(err, &notFound))
}

func TestResolver_NotFound(t *testing.T) {
	client := &fakeClient{}
	r := NewResolver(client, nil, time.Minute, zap.NewNop())

	_, err := r.ResolvePoolTokenAccount(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResolver_ResolveUserTokenAccount(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	t.Run("missing account is not an error", func(t *testing.T) {
		r := NewResolver(&fakeClient{}, nil, time.Minute, zap.NewNop())
		ata, exists, err := r.ResolveUserTokenAccount(context.Background(), owner, mint)
		require.NoError(t, err)
		assert.False(t, exists)

		expected, _, _ := solana.FindAssociatedTokenAddress(owner, mint)
		assert.Equal(t, expected, ata)
	})

	t.Run("existing account", func(t *testing.T) {
		client := &fakeClient{
			getAccountInfo: func(context.Context, solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
				return &rpc.GetAccountInfoResult{Value: &rpc.Account{
					Data: rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, owner)),
				}}, nil
			},
		}
		r := NewResolver(client, nil, time.Minute, zap.NewNop())
		_, exists, err := r.ResolveUserTokenAccount(context.Background(), owner, mint)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
