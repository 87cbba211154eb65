package vesting

import "tokenvesting/internal/models"

// TreasuryAuthority is the derived signer that owns a pool treasury. Nobody holds a key
// for it; the only way to spend from the treasury is an authorization minted here.
type TreasuryAuthority struct {
	pool     string
	treasury string
}

func treasuryAuthorityOf(p *models.VestingPool) *TreasuryAuthority {
	return &TreasuryAuthority{pool: p.Address, treasury: p.Treasury}
}

// Address is the authority's public identity, which is the treasury account itself.
func (a *TreasuryAuthority) Address() string {
	return a.treasury
}

func (a *TreasuryAuthority) authorize(amount uint64) TransferAuthorization {
	return TransferAuthorization{
		authority: a.treasury,
		source:    a.treasury,
		pool:      a.pool,
		amount:    amount,
	}
}

// TransferAuthorization permits exactly one debit of Amount from Source.
// The zero value authorizes nothing.
type TransferAuthorization struct {
	authority string
	source    string
	pool      string
	amount    uint64
}

func (t TransferAuthorization) Authority() string { return t.authority }
func (t TransferAuthorization) Source() string    { return t.source }
func (t TransferAuthorization) Pool() string      { return t.pool }
func (t TransferAuthorization) Amount() uint64    { return t.amount }

// Permits reports whether the authorization covers a debit of amount from source.
func (t TransferAuthorization) Permits(source string, amount uint64) bool {
	return t.authority != "" && t.source == source && t.amount == amount && amount > 0
}
