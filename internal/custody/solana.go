package custody

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// LamportsPerUnit converts the engine's 1e6 fixed-point units to lamports
// (1e9 per SOL).
const LamportsPerUnit = 1_000

var (
	// ErrDepositNotFound means the signature is unknown to the cluster yet.
	ErrDepositNotFound = errors.New("deposit transaction not found")
	// ErrDepositUnconfirmed means the transaction exists but has not reached
	// the required commitment level.
	ErrDepositUnconfirmed = errors.New("deposit transaction not confirmed")
	// ErrDepositMismatch means the confirmed transfer does not match the
	// claimed sender or does not pay the treasury.
	ErrDepositMismatch = errors.New("deposit transaction does not match claim")
)

// SolanaCustody moves real funds between user wallets and the treasury.
// Deposits are user-initiated transfers verified by signature; withdrawals
// are treasury-signed system transfers. The engine's internal ledger is the
// source of truth for balances, this adapter only gates funds crossing the
// boundary.
type SolanaCustody struct {
	rpcClient        *rpc.Client
	network          string
	treasury         solana.PublicKey
	treasuryKey      solana.PrivateKey
	minConfirmations int
}

// NewSolanaCustody creates a custody adapter for the given network. The
// treasury key must be the base58-encoded private key of treasuryWallet.
func NewSolanaCustody(network, treasuryWallet, treasuryKey string, minConfirmations int) (*SolanaCustody, error) {
	var rpcURL string
	switch network {
	case "mainnet-beta":
		rpcURL = rpc.MainNetBeta_RPC
	case "testnet":
		rpcURL = rpc.TestNet_RPC
	default:
		rpcURL = rpc.DevNet_RPC
	}

	treasury, err := solana.PublicKeyFromBase58(treasuryWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury wallet: %w", err)
	}
	key, err := solana.PrivateKeyFromBase58(treasuryKey)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury key: %w", err)
	}
	if !key.PublicKey().Equals(treasury) {
		return nil, fmt.Errorf("treasury key does not match treasury wallet %s", treasuryWallet)
	}

	return &SolanaCustody{
		rpcClient:        rpc.New(rpcURL),
		network:          network,
		treasury:         treasury,
		treasuryKey:      key,
		minConfirmations: minConfirmations,
	}, nil
}

// ValidateWalletAddress validates a Solana wallet address format
func (s *SolanaCustody) ValidateWalletAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

// VerifyDeposit checks that the given signature is a confirmed transfer from
// fromWallet to the treasury and returns the transferred lamports. The
// amount is taken from the treasury's balance delta, which also covers
// transfers built by wallets that add memo or compute-budget instructions.
func (s *SolanaCustody) VerifyDeposit(ctx context.Context, signature, fromWallet string) (uint64, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return 0, fmt.Errorf("invalid signature: %w", err)
	}
	sender, err := solana.PublicKeyFromBase58(fromWallet)
	if err != nil {
		return 0, fmt.Errorf("invalid sender wallet: %w", err)
	}

	status, err := s.rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return 0, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(status.Value) == 0 || status.Value[0] == nil {
		return 0, ErrDepositNotFound
	}
	if status.Value[0].Err != nil {
		return 0, fmt.Errorf("%w: transaction failed on chain", ErrDepositMismatch)
	}
	conf := status.Value[0].ConfirmationStatus
	if conf != rpc.ConfirmationStatusConfirmed && conf != rpc.ConfirmationStatusFinalized {
		return 0, ErrDepositUnconfirmed
	}
	if s.minConfirmations > 1 && conf != rpc.ConfirmationStatusFinalized {
		if status.Value[0].Confirmations != nil && int(*status.Value[0].Confirmations) < s.minConfirmations {
			return 0, ErrDepositUnconfirmed
		}
	}

	result, err := s.rpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction: %w", err)
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return 0, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(sender) {
		return 0, fmt.Errorf("%w: fee payer is not the claimed sender", ErrDepositMismatch)
	}

	treasuryIdx := -1
	for i, key := range tx.Message.AccountKeys {
		if key.Equals(s.treasury) {
			treasuryIdx = i
			break
		}
	}
	if treasuryIdx < 0 {
		return 0, fmt.Errorf("%w: treasury is not a transfer recipient", ErrDepositMismatch)
	}

	if result.Meta == nil ||
		len(result.Meta.PreBalances) <= treasuryIdx ||
		len(result.Meta.PostBalances) <= treasuryIdx {
		return 0, fmt.Errorf("%w: transaction metadata unavailable", ErrDepositMismatch)
	}
	pre := result.Meta.PreBalances[treasuryIdx]
	post := result.Meta.PostBalances[treasuryIdx]
	if post <= pre {
		return 0, fmt.Errorf("%w: no funds received by treasury", ErrDepositMismatch)
	}

	return post - pre, nil
}

// Payout sends lamports from the treasury to the given wallet and returns
// the transaction signature.
func (s *SolanaCustody) Payout(ctx context.Context, toWallet string, lamports uint64) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(toWallet)
	if err != nil {
		return "", fmt.Errorf("invalid recipient wallet: %w", err)
	}

	// System program transfer: u32 instruction index 2, then u64 lamports.
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	instruction := solana.NewInstruction(
		solana.SystemProgramID,
		[]*solana.AccountMeta{
			{PublicKey: s.treasury, IsWritable: true, IsSigner: true},
			{PublicKey: recipient, IsWritable: true, IsSigner: false},
		},
		data,
	)

	recent, err := s.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(s.treasury),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.treasury) {
			return &s.treasuryKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	log.Printf("[Custody] Paid out %d lamports to %s: %s", lamports, toWallet, sig)
	return sig.String(), nil
}
