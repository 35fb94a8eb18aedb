// Package solana implements the custody capabilities on the Solana network: inbound
// deposits are system-program transfers into the pooled account and payouts are
// transfers out of it signed with the pool key.
package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/chris/custodial-ledger/pkg/custody"
)

// feeReserve is kept on the pool for transaction fees when checking payout funds.
const feeReserve = 10_000

// RPC is the part of the solana-go RPC client the adapter uses.
type RPC interface {
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

var _ RPC = (*rpc.Client)(nil)

// Custody verifies deposits into and pays out of a single pooled account.
type Custody struct {
	rpc    RPC
	pool   solana.PublicKey
	key    *solana.PrivateKey
	logger *slog.Logger

	// PollInterval is how often Pay checks whether a submitted payout confirmed.
	PollInterval time.Duration
}

var (
	_ custody.Verifier         = (*Custody)(nil)
	_ custody.Payer            = (*Custody)(nil)
	_ custody.AddressValidator = (*Custody)(nil)
)

// New creates a Custody that pays out with key. The pool address is the key's public key.
func New(client RPC, key solana.PrivateKey, logger *slog.Logger) *Custody {
	if logger == nil {
		logger = slog.Default()
	}
	return &Custody{
		rpc:          client,
		pool:         key.PublicKey(),
		key:          &key,
		logger:       logger,
		PollInterval: 500 * time.Millisecond,
	}
}

// NewVerifier creates a Custody that can only verify deposits into pool. Pay fails on it.
func NewVerifier(client RPC, pool solana.PublicKey, logger *slog.Logger) *Custody {
	if logger == nil {
		logger = slog.Default()
	}
	return &Custody{rpc: client, pool: pool, logger: logger, PollInterval: 500 * time.Millisecond}
}

// PoolAddress returns the pooled account address in base58.
func (c *Custody) PoolAddress() string {
	return c.pool.String()
}

func (c *Custody) ValidateAddress(addr string) error {
	if _, err := solana.PublicKeyFromBase58(addr); err != nil {
		return fmt.Errorf("%w: %v", custody.ErrInvalidAddress, err)
	}
	return nil
}

// Verify looks up a confirmed transaction by signature and reports the system transfers
// it makes into the pool. Transfers from several funders are reported for the first one.
func (c *Custody) Verify(ctx context.Context, ref string) (*custody.Transfer, error) {
	sig, err := solana.SignatureFromBase58(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed signature: %v", custody.ErrNotFound, err)
	}

	maxVersion := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, custody.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get transaction: %v", custody.ErrRPCFailure, err)
	}
	if out == nil || out.Transaction == nil {
		return nil, custody.ErrNotFound
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", custody.ErrRPCFailure, err)
	}

	transfer := &custody.Transfer{
		Ref:       ref,
		Confirmed: out.Meta != nil && out.Meta.Err == nil,
		To:        c.pool.String(),
	}
	for _, inst := range tx.Message.Instructions {
		from, lamports, ok := c.transferIntoPool(tx, inst)
		if !ok {
			continue
		}
		if transfer.From == "" {
			transfer.From = from.String()
		}
		if transfer.From == from.String() {
			transfer.Amount += lamports
		}
	}
	if transfer.From == "" {
		// The transaction exists but moved nothing into the pool.
		transfer.To = ""
	}
	return transfer, nil
}

func (c *Custody) transferIntoPool(tx *solana.Transaction, inst solana.CompiledInstruction) (solana.PublicKey, int64, bool) {
	programID, err := tx.Message.Program(inst.ProgramIDIndex)
	if err != nil || !programID.Equals(solana.SystemProgramID) {
		return solana.PublicKey{}, 0, false
	}
	accounts, err := inst.ResolveInstructionAccounts(&tx.Message)
	if err != nil {
		return solana.PublicKey{}, 0, false
	}
	decoded, err := system.DecodeInstruction(accounts, inst.Data)
	if err != nil {
		return solana.PublicKey{}, 0, false
	}
	transfer, ok := decoded.Impl.(*system.Transfer)
	if !ok || transfer.Lamports == nil || *transfer.Lamports > uint64(1<<63-1) {
		return solana.PublicKey{}, 0, false
	}
	if !transfer.GetRecipientAccount().PublicKey.Equals(c.pool) {
		return solana.PublicKey{}, 0, false
	}
	return transfer.GetFundingAccount().PublicKey, int64(*transfer.Lamports), true
}

// Pay transfers amount lamports from the pool to the destination and waits until the
// transfer confirms or ctx ends. Once the transaction has been handed to the node any
// failure to learn its fate is reported as custody.ErrOutcomeUnknown with the receipt.
func (c *Custody) Pay(ctx context.Context, to string, amount int64) (custody.Receipt, error) {
	if c.key == nil {
		return custody.Receipt{}, fmt.Errorf("%w: custody has no signing key", custody.ErrRPCFailure)
	}
	dest, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return custody.Receipt{}, fmt.Errorf("%w: %v", custody.ErrInvalidAddress, err)
	}
	if amount <= 0 {
		return custody.Receipt{}, fmt.Errorf("%w: invalid payout amount %d", custody.ErrRPCFailure, amount)
	}

	balance, err := c.rpc.GetBalance(ctx, c.pool, rpc.CommitmentConfirmed)
	if err != nil {
		return custody.Receipt{}, fmt.Errorf("%w: get pool balance: %v", custody.ErrRPCFailure, err)
	}
	if balance.Value < uint64(amount)+feeReserve {
		return custody.Receipt{}, fmt.Errorf("%w: pool holds %d lamports, payout needs %d", custody.ErrInsufficientFunds, balance.Value, amount)
	}

	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return custody.Receipt{}, fmt.Errorf("%w: get latest blockhash: %v", custody.ErrRPCFailure, err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(uint64(amount), c.pool, dest).Build()},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.pool),
	)
	if err != nil {
		return custody.Receipt{}, fmt.Errorf("%w: build transaction: %v", custody.ErrRPCFailure, err)
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.pool) {
			return c.key
		}
		return nil
	})
	if err != nil {
		return custody.Receipt{}, fmt.Errorf("%w: sign transaction: %v", custody.ErrRPCFailure, err)
	}

	// The signature is known before sending, so even a lost response leaves a ref to reconcile.
	receipt := custody.Receipt{Ref: tx.Signatures[0].String(), ValidUntil: recent.Value.LastValidBlockHeight}

	_, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{PreflightCommitment: rpc.CommitmentConfirmed})
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) && ctx.Err() == nil {
			// Rejected by the node during preflight; nothing was broadcast.
			return custody.Receipt{}, fmt.Errorf("%w: send transaction: %v", custody.ErrRPCFailure, err)
		}
		return receipt, fmt.Errorf("%w: send transaction: %v", custody.ErrOutcomeUnknown, err)
	}
	c.logger.Info("payout submitted", "signature", receipt.Ref, "lamports", amount, "to", to)

	return receipt, c.awaitConfirmation(ctx, receipt)
}

func (c *Custody) awaitConfirmation(ctx context.Context, receipt custody.Receipt) error {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		status, err := c.PayoutStatus(ctx, receipt)
		switch {
		case err != nil && ctx.Err() != nil:
			return fmt.Errorf("%w: %v", custody.ErrOutcomeUnknown, ctx.Err())
		case err != nil:
			c.logger.Warn("payout status check failed", "signature", receipt.Ref, "error", err)
		case status == custody.PayoutConfirmed:
			return nil
		case status == custody.PayoutFailed:
			return fmt.Errorf("%w: payout %s did not land", custody.ErrRPCFailure, receipt.Ref)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", custody.ErrOutcomeUnknown, ctx.Err())
		case <-ticker.C:
		}
	}
}

// PayoutStatus reports a payout as failed when it failed on chain, or when it was never
// seen and its blockhash can no longer be used.
func (c *Custody) PayoutStatus(ctx context.Context, receipt custody.Receipt) (custody.PayoutStatus, error) {
	sig, err := solana.SignatureFromBase58(receipt.Ref)
	if err != nil {
		return "", fmt.Errorf("parse payout ref %q: %w", receipt.Ref, err)
	}

	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return "", fmt.Errorf("%w: get signature status: %v", custody.ErrRPCFailure, err)
	}
	if out != nil && len(out.Value) > 0 && out.Value[0] != nil {
		st := out.Value[0]
		switch {
		case st.Err != nil:
			return custody.PayoutFailed, nil
		case st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed,
			st.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
			return custody.PayoutConfirmed, nil
		default:
			return custody.PayoutPending, nil
		}
	}

	if receipt.ValidUntil == 0 {
		return custody.PayoutPending, nil
	}
	height, err := c.rpc.GetBlockHeight(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("%w: get block height: %v", custody.ErrRPCFailure, err)
	}
	if height > receipt.ValidUntil {
		return custody.PayoutFailed, nil
	}
	return custody.PayoutPending, nil
}
