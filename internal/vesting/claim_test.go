package vesting_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenvesting/internal/store"
	"tokenvesting/internal/store/storetest"
	"tokenvesting/internal/vesting"
	solanautil "tokenvesting/pkg/solana"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []vesting.ClaimEvent
	err    error
}

func (p *recordingPublisher) PublishClaim(_ context.Context, ev vesting.ClaimEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type harness struct {
	ledger    *store.Ledger
	deriver   *solanautil.Deriver
	pools     *vesting.PoolManager
	grants    *vesting.GrantManager
	engine    *vesting.ClaimEngine
	publisher *recordingPublisher

	admin   string
	company string
	asset   string
}

func newHarness(t *testing.T, strict bool) *harness {
	t.Helper()
	deriver, err := solanautil.NewDeriver("")
	require.NoError(t, err)

	ledger := store.NewLedger(storetest.OpenDB(t))
	pub := &recordingPublisher{}
	h := &harness{
		ledger:    ledger,
		deriver:   deriver,
		pools:     vesting.NewPoolManager(ledger, deriver),
		grants:    vesting.NewGrantManager(ledger, deriver, strict),
		engine:    vesting.NewClaimEngine(ledger, deriver, pub),
		publisher: pub,
		admin:     newIdentity(),
		company:   gofakeit.Company(),
		asset:     newIdentity(),
	}
	if len(h.company) > vesting.MaxCompanyNameLen {
		h.company = h.company[:vesting.MaxCompanyNameLen]
	}

	_, err = h.pools.CreatePool(context.Background(), vesting.CreatePoolRequest{
		Administrator:        h.admin,
		CompanyName:          h.company,
		Asset:                h.asset,
		AssetDecimals:        9,
		InitialFundingAmount: 1,
	})
	require.NoError(t, err)
	return h
}

func newIdentity() string {
	return solana.NewWallet().PublicKey().String()
}

func (h *harness) fund(t *testing.T, amount uint64) {
	t.Helper()
	_, err := h.pools.FundPool(context.Background(), h.admin, h.company, amount)
	require.NoError(t, err)
}

func (h *harness) grant(t *testing.T, start, cliff, end int64, total uint64) string {
	t.Helper()
	beneficiary := newIdentity()
	_, err := h.grants.CreateGrant(context.Background(), vesting.CreateGrantRequest{
		Caller:      h.admin,
		CompanyName: h.company,
		Beneficiary: beneficiary,
		StartTime:   start,
		CliffTime:   cliff,
		EndTime:     end,
		TotalAmount: total,
	})
	require.NoError(t, err)
	return beneficiary
}

func (h *harness) claim(beneficiary string, now int64) (*vesting.ClaimResult, error) {
	return h.engine.Claim(context.Background(), vesting.ClaimRequest{
		Caller:      beneficiary,
		CompanyName: h.company,
		Now:         now,
	})
}

func TestCreatePool(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	pool, err := h.pools.Pool(ctx, h.company)
	require.NoError(t, err)

	want, bump, err := h.deriver.PoolAddress(h.company)
	require.NoError(t, err)
	assert.Equal(t, want, pool.Address)
	assert.Equal(t, bump, pool.Bump)
	assert.Equal(t, h.admin, pool.Owner)
	assert.Equal(t, h.asset, pool.Asset)

	treasury, _, err := h.deriver.TreasuryAddress(h.company)
	require.NoError(t, err)
	assert.Equal(t, treasury, pool.Treasury)

	balance, err := h.pools.TreasuryBalance(ctx, pool)
	require.NoError(t, err)
	assert.Zero(t, balance, "initial funding amount is not transferred")

	t.Run("Duplicate company", func(t *testing.T) {
		_, err := h.pools.CreatePool(ctx, vesting.CreatePoolRequest{
			Administrator: newIdentity(),
			CompanyName:   h.company,
			Asset:         newIdentity(),
		})
		assert.ErrorIs(t, err, vesting.ErrDuplicatePool)
	})

	t.Run("Company name bounds", func(t *testing.T) {
		_, err := h.pools.CreatePool(ctx, vesting.CreatePoolRequest{
			Administrator: h.admin,
			CompanyName:   "",
			Asset:         h.asset,
		})
		assert.ErrorIs(t, err, vesting.ErrInvalidCompanyName)

		_, err = h.pools.CreatePool(ctx, vesting.CreatePoolRequest{
			Administrator: h.admin,
			CompanyName:   strings.Repeat("x", vesting.MaxCompanyNameLen+1),
			Asset:         h.asset,
		})
		assert.ErrorIs(t, err, vesting.ErrCompanyNameTooLong)

		_, err = h.pools.CreatePool(ctx, vesting.CreatePoolRequest{
			Administrator: h.admin,
			CompanyName:   strings.Repeat("y", vesting.MaxCompanyNameLen),
			Asset:         h.asset,
		})
		assert.NoError(t, err)
	})

	t.Run("Invalid identity", func(t *testing.T) {
		_, err := h.pools.CreatePool(ctx, vesting.CreatePoolRequest{
			Administrator: "not-a-key",
			CompanyName:   "acme",
			Asset:         h.asset,
		})
		assert.ErrorIs(t, err, vesting.ErrInvalidIdentity)
	})

	t.Run("Fund zero", func(t *testing.T) {
		_, err := h.pools.FundPool(ctx, h.admin, h.company, 0)
		assert.ErrorIs(t, err, vesting.ErrInvalidAmount)
	})

	t.Run("Fund by a stranger", func(t *testing.T) {
		_, err := h.pools.FundPool(ctx, newIdentity(), h.company, 10)
		assert.ErrorIs(t, err, vesting.ErrNotPoolOwner)

		pool, err := h.pools.Pool(ctx, h.company)
		require.NoError(t, err)
		balance, err := h.pools.TreasuryBalance(ctx, pool)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("Fund unknown pool", func(t *testing.T) {
		_, err := h.pools.FundPool(ctx, h.admin, "nobody", 10)
		assert.ErrorIs(t, err, vesting.ErrPoolNotFound)
	})
}

func TestCreateGrant(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	beneficiary := h.grant(t, 1000, 1500, 2000, 1000)
	pool, grant, err := h.grants.Grant(ctx, beneficiary, h.company)
	require.NoError(t, err)

	want, bump, err := h.deriver.GrantAddress(beneficiary, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, want, grant.Address)
	assert.Equal(t, bump, grant.Bump)
	assert.Equal(t, pool.Address, grant.VestingPool)
	assert.Zero(t, grant.TotalClaimed)

	t.Run("Duplicate grant", func(t *testing.T) {
		_, err := h.grants.CreateGrant(ctx, vesting.CreateGrantRequest{
			Caller:      h.admin,
			CompanyName: h.company,
			Beneficiary: beneficiary,
			StartTime:   0,
			CliffTime:   0,
			EndTime:     10,
			TotalAmount: 5,
		})
		assert.ErrorIs(t, err, vesting.ErrDuplicateGrant)
	})

	t.Run("Only the owner grants", func(t *testing.T) {
		_, err := h.grants.CreateGrant(ctx, vesting.CreateGrantRequest{
			Caller:      newIdentity(),
			CompanyName: h.company,
			Beneficiary: newIdentity(),
			StartTime:   0,
			CliffTime:   0,
			EndTime:     10,
			TotalAmount: 5,
		})
		assert.ErrorIs(t, err, vesting.ErrNotPoolOwner)
	})

	t.Run("Unknown pool", func(t *testing.T) {
		_, err := h.grants.CreateGrant(ctx, vesting.CreateGrantRequest{
			Caller:      h.admin,
			CompanyName: "nobody",
			Beneficiary: newIdentity(),
			StartTime:   0,
			CliffTime:   0,
			EndTime:     10,
			TotalAmount: 5,
		})
		assert.ErrorIs(t, err, vesting.ErrPoolNotFound)
	})

	t.Run("Strict schedule", func(t *testing.T) {
		_, err := h.grants.CreateGrant(ctx, vesting.CreateGrantRequest{
			Caller:      h.admin,
			CompanyName: h.company,
			Beneficiary: newIdentity(),
			StartTime:   10,
			CliffTime:   5,
			EndTime:     20,
			TotalAmount: 5,
		})
		assert.ErrorIs(t, err, vesting.ErrInvalidSchedule)
	})

	grants, err := h.grants.Grants(ctx, h.company)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestClaimLifecycle(t *testing.T) {
	h := newHarness(t, true)
	h.fund(t, 1000)
	beneficiary := h.grant(t, 1000, 1500, 2000, 1000)

	_, err := h.claim(beneficiary, 1499)
	assert.ErrorIs(t, err, vesting.ErrClaimNotAvailable)

	res, err := h.claim(beneficiary, 1500)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), res.Amount)
	assert.Equal(t, uint64(500), res.TotalClaimed)

	_, err = h.claim(beneficiary, 1500)
	assert.ErrorIs(t, err, vesting.ErrNoTokensToClaim)

	res, err = h.claim(beneficiary, 1750)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), res.Amount)

	res, err = h.claim(beneficiary, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), res.Amount)
	assert.Equal(t, uint64(1000), res.TotalClaimed)

	_, err = h.claim(beneficiary, 6000)
	assert.ErrorIs(t, err, vesting.ErrNoTokensToClaim)

	ctx := context.Background()
	dest, err := h.deriver.TokenAccount(beneficiary, h.asset)
	require.NoError(t, err)
	assert.Equal(t, dest, res.Destination)

	received, err := h.ledger.Balance(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), received)

	pool, err := h.pools.Pool(ctx, h.company)
	require.NoError(t, err)
	left, err := h.pools.TreasuryBalance(ctx, pool)
	require.NoError(t, err)
	assert.Zero(t, left)

	require.Len(t, h.publisher.events, 3)
	assert.Equal(t, uint64(500), h.publisher.events[0].Amount)
	assert.Equal(t, beneficiary, h.publisher.events[2].Beneficiary)
	assert.Equal(t, uint64(1000), h.publisher.events[2].TotalClaimed)
}

func TestClaimRejections(t *testing.T) {
	h := newHarness(t, false)
	h.fund(t, 1000)
	beneficiary := h.grant(t, 1000, 1500, 2000, 1000)

	t.Run("Caller must be the beneficiary", func(t *testing.T) {
		_, err := h.engine.Claim(context.Background(), vesting.ClaimRequest{
			Caller:      newIdentity(),
			Beneficiary: beneficiary,
			CompanyName: h.company,
			Now:         1800,
		})
		assert.ErrorIs(t, err, vesting.ErrNotBeneficiary)
	})

	t.Run("No grant", func(t *testing.T) {
		_, err := h.claim(newIdentity(), 1800)
		assert.ErrorIs(t, err, vesting.ErrGrantNotFound)
	})

	t.Run("Degenerate period", func(t *testing.T) {
		flat := h.grant(t, 1000, 0, 1000, 10)
		_, err := h.claim(flat, 5000)
		assert.ErrorIs(t, err, vesting.ErrInvalidVestingPeriod)

		inverted := h.grant(t, 2000, 1500, 1000, 10)
		_, err = h.claim(inverted, 5000)
		assert.ErrorIs(t, err, vesting.ErrInvalidVestingPeriod)
	})

	t.Run("Failed claims leave no trace", func(t *testing.T) {
		pool, grant, err := h.grants.Grant(context.Background(), beneficiary, h.company)
		require.NoError(t, err)
		assert.Zero(t, grant.TotalClaimed)
		balance, err := h.pools.TreasuryBalance(context.Background(), pool)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), balance)
		assert.Empty(t, h.publisher.events)
	})
}

func TestConcurrentClaimsPayOnce(t *testing.T) {
	h := newHarness(t, true)
	h.fund(t, 1000)
	beneficiary := h.grant(t, 0, 0, 100, 1000)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		paid    uint64
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.claim(beneficiary, 60)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, vesting.ErrNoTokensToClaim)
				return
			}
			paid += res.Amount
			success++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, uint64(600), paid)

	_, grant, err := h.grants.Grant(context.Background(), beneficiary, h.company)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), grant.TotalClaimed)
}

func TestConcurrentClaimsOnDistinctGrants(t *testing.T) {
	h := newHarness(t, true)
	h.fund(t, 2000)
	beneficiaries := []string{
		h.grant(t, 0, 0, 100, 1000),
		h.grant(t, 0, 0, 100, 500),
	}
	want := []uint64{600, 300}

	const perGrant = 4
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		paid = make([]uint64, len(beneficiaries))
	)
	for i := range beneficiaries {
		for j := 0; j < perGrant; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := h.claim(beneficiaries[i], 60)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					assert.ErrorIs(t, err, vesting.ErrNoTokensToClaim)
					return
				}
				assert.Equal(t, want[i], res.TotalClaimed, "counter of one grant must not include the other")
				paid[i] += res.Amount
			}(i)
		}
	}
	wg.Wait()

	ctx := context.Background()
	for i, beneficiary := range beneficiaries {
		assert.Equal(t, want[i], paid[i])
		_, grant, err := h.grants.Grant(ctx, beneficiary, h.company)
		require.NoError(t, err)
		assert.Equal(t, want[i], grant.TotalClaimed)
	}

	pool, err := h.pools.Pool(ctx, h.company)
	require.NoError(t, err)
	balance, err := h.pools.TreasuryBalance(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000-600-300), balance)
}

func TestPublishFailureDoesNotFailClaim(t *testing.T) {
	h := newHarness(t, true)
	h.publisher.err = errors.New("broker down")
	h.fund(t, 100)
	beneficiary := h.grant(t, 0, 0, 10, 100)

	res, err := h.claim(beneficiary, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.Amount)
	assert.Len(t, h.publisher.events, 1)
}

func TestPreview(t *testing.T) {
	h := newHarness(t, true)
	h.fund(t, 1000)
	beneficiary := h.grant(t, 1000, 1500, 2000, 1000)
	ctx := context.Background()

	q, err := h.engine.Preview(ctx, beneficiary, h.company, 1200)
	require.NoError(t, err)
	assert.Equal(t, vesting.PhaseLocked, q.Phase)
	assert.Zero(t, q.Claimable)

	q, err = h.engine.Preview(ctx, beneficiary, h.company, 1800)
	require.NoError(t, err)
	assert.Equal(t, vesting.PhaseVesting, q.Phase)
	assert.Equal(t, uint64(800), q.Claimable)

	_, grant, err := h.grants.Grant(ctx, beneficiary, h.company)
	require.NoError(t, err)
	assert.Zero(t, grant.TotalClaimed, "preview must not claim")
}

func TestPublishersJoinErrors(t *testing.T) {
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("boom")}
	err := vesting.Publishers{ok, bad}.PublishClaim(context.Background(), vesting.ClaimEvent{ID: "x"})
	assert.EqualError(t, err, "boom")
	assert.Len(t, ok.events, 1)
	assert.Len(t, bad.events, 1)
}
