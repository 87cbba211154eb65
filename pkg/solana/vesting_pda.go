package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"tokenvesting/internal/vesting"
)

// 归属程序地址
var DEFAULT_VESTING_PROGRAM_ID = solana.MustPublicKeyFromBase58("H2CpMZemyu7b1R5AVPcYsqAdYaE1oJ8D2YwbrSGdZaLT")

// PDA seeds
var (
	SEED_VESTING_TREASURY = []byte("vesting_treasury")
	SEED_EMPLOYEE_VESTING = []byte("employee_vesting")
)

// PDAResult is a derived address with its bump seed
type PDAResult struct {
	Address solana.PublicKey
	Bump    uint8
}

// Deriver derives vesting record addresses under one program id.
type Deriver struct {
	programID solana.PublicKey
}

// NewDeriver returns a Deriver for programID, or the default program when empty.
func NewDeriver(programID string) (*Deriver, error) {
	if programID == "" {
		return &Deriver{programID: DEFAULT_VESTING_PROGRAM_ID}, nil
	}
	pk, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}
	return &Deriver{programID: pk}, nil
}

func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

// GetVestingPoolPDA derives the pool account, seeded by the company name
func (d *Deriver) GetVestingPoolPDA(companyName string) (PDAResult, error) {
	seeds := [][]byte{[]byte(companyName)}

	address, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find vesting pool PDA: %w", err)
	}

	return PDAResult{
		Address: address,
		Bump:    bump,
	}, nil
}

// GetTreasuryPDA derives the treasury token account of a pool
func (d *Deriver) GetTreasuryPDA(companyName string) (PDAResult, error) {
	seeds := [][]byte{
		SEED_VESTING_TREASURY,
		[]byte(companyName),
	}

	address, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find treasury PDA: %w", err)
	}

	return PDAResult{
		Address: address,
		Bump:    bump,
	}, nil
}

// GetGrantPDA derives the grant account of a beneficiary in a pool
func (d *Deriver) GetGrantPDA(beneficiary, pool solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{
		SEED_EMPLOYEE_VESTING,
		beneficiary[:],
		pool[:],
	}

	address, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find grant PDA: %w", err)
	}

	return PDAResult{
		Address: address,
		Bump:    bump,
	}, nil
}

// GetAssociatedTokenAddress derives the SPL associated token account of owner for mint
func GetAssociatedTokenAddress(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		owner[:],
		solana.TokenProgramID[:],
		mint[:],
	}

	address, _, err := solana.FindProgramAddress(seeds, solana.SPLAssociatedTokenAccountProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find associated token address: %w", err)
	}

	return address, nil
}

// The methods below adapt the deriver to vesting.Addresser.

func (d *Deriver) CheckIdentity(identity string) error {
	_, err := parseIdentity(identity)
	return err
}

func (d *Deriver) PoolAddress(companyName string) (string, uint8, error) {
	res, err := d.GetVestingPoolPDA(companyName)
	if err != nil {
		return "", 0, err
	}
	return res.Address.String(), res.Bump, nil
}

func (d *Deriver) TreasuryAddress(companyName string) (string, uint8, error) {
	res, err := d.GetTreasuryPDA(companyName)
	if err != nil {
		return "", 0, err
	}
	return res.Address.String(), res.Bump, nil
}

func (d *Deriver) GrantAddress(beneficiary, poolAddress string) (string, uint8, error) {
	b, err := parseIdentity(beneficiary)
	if err != nil {
		return "", 0, err
	}
	p, err := parseIdentity(poolAddress)
	if err != nil {
		return "", 0, err
	}
	res, err := d.GetGrantPDA(b, p)
	if err != nil {
		return "", 0, err
	}
	return res.Address.String(), res.Bump, nil
}

func (d *Deriver) TokenAccount(owner, mint string) (string, error) {
	o, err := parseIdentity(owner)
	if err != nil {
		return "", err
	}
	m, err := parseIdentity(mint)
	if err != nil {
		return "", err
	}
	ata, err := GetAssociatedTokenAddress(m, o)
	if err != nil {
		return "", err
	}
	return ata.String(), nil
}

func parseIdentity(s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty identity", vesting.ErrInvalidIdentity)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s: %v", vesting.ErrInvalidIdentity, s, err)
	}
	return pk, nil
}
