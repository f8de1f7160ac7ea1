package solana

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/logging"
)

// Client errors.
var (
	ErrMintNotFound   = errors.New("mint account not found")
	ErrConfirmTimeout = errors.New("transaction not confirmed in time")
	ErrTxFailed       = errors.New("transaction failed on chain")
)

// DefaultPollInterval is how often signature statuses are polled.
const DefaultPollInterval = 2 * time.Second

// RPC is the subset of *rpc.Client the Client uses.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetAccountInfoWithOpts(
		ctx context.Context,
		account solana.PublicKey,
		opts *rpc.GetAccountInfoOpts,
	) (*rpc.GetAccountInfoResult, error)
	SendTransactionWithOpts(
		ctx context.Context,
		tx *solana.Transaction,
		opts rpc.TransactionOpts,
	) (solana.Signature, error)
	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		signatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

// Options tunes a Client.
type Options struct {
	Commitment     rpc.CommitmentType
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	// UseToken2022 forces the Token-2022 program. Otherwise the program is
	// taken from the mint account's owner.
	UseToken2022 bool
	// MintIfAuthority mints instead of transferring when the signer holds
	// the mint authority.
	MintIfAuthority bool
}

// Client signs and submits transfers with a single keypair. It implements
// engine.Transferer and engine.BalanceReader and is safe for concurrent use.
type Client struct {
	rpc    RPC
	signer solana.PrivateKey
	opts   Options

	mu    sync.Mutex
	mints map[solana.PublicKey]MintInfo
}

var (
	_ engine.Transferer    = (*Client)(nil)
	_ engine.BalanceReader = (*Client)(nil)
)

// NewClient returns a Client using rpcClient and signer.
func NewClient(rpcClient RPC, signer solana.PrivateKey, opts Options) *Client {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = config.DefaultConfirmTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Client{
		rpc:    rpcClient,
		signer: signer,
		opts:   opts,
		mints:  make(map[solana.PublicKey]MintInfo),
	}
}

// Dial connects to the endpoint in cfg and loads its keypair.
func Dial(cfg *config.Config) (*Client, error) {
	url, err := ClusterURL(cfg.Cluster, cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	key, err := LoadKeypair(cfg.Keypair)
	if err != nil {
		return nil, err
	}
	return NewClient(rpc.New(url), key, Options{
		Commitment:      rpc.CommitmentType(cfg.Commitment),
		ConfirmTimeout:  cfg.ConfirmTimeout,
		UseToken2022:    cfg.Transfer.UseToken2022,
		MintIfAuthority: cfg.Transfer.MintIfAuthority,
	}), nil
}

// Signer returns the public key that signs and pays for every transaction.
func (c *Client) Signer() solana.PublicKey {
	return c.signer.PublicKey()
}

// Mint returns the decoded mint account, fetching it once per Client.
func (c *Client) Mint(ctx context.Context, mint string) (MintInfo, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return MintInfo{}, fmt.Errorf("parsing mint %q: %w", mint, err)
	}

	c.mu.Lock()
	info, ok := c.mints[mintKey]
	c.mu.Unlock()
	if ok {
		return info, nil
	}

	out, err := c.rpc.GetAccountInfoWithOpts(ctx, mintKey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.opts.Commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return MintInfo{}, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
		}
		return MintInfo{}, fmt.Errorf("fetching mint %s: %w", mint, err)
	}
	if !isTokenProgram(out.Value.Owner) {
		return MintInfo{}, fmt.Errorf("%w: mint %s owned by %s", ErrNotTokenProgram, mint, out.Value.Owner)
	}

	program := out.Value.Owner
	if c.opts.UseToken2022 {
		program = TokenProgram(true)
	}
	info, err = DecodeMint(mintKey, program, out.Value.Data.GetBinary())
	if err != nil {
		return MintInfo{}, err
	}

	c.mu.Lock()
	c.mints[mintKey] = info
	c.mu.Unlock()

	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "solana").
		Str("operation", "get_mint").
		Str("mint", mint).
		Str("program", program.String()).
		Uint8("decimals", info.Decimals).
		Msg("loaded mint")
	return info, nil
}

// Decimals returns the number of decimals of mint.
func (c *Client) Decimals(ctx context.Context, mint string) (uint8, error) {
	info, err := c.Mint(ctx, mint)
	if err != nil {
		return 0, err
	}
	return info.Decimals, nil
}

// Balance returns the amount owner holds in its associated token account
// for mint. A missing account reports exists=false.
func (c *Client) Balance(ctx context.Context, owner, mint string) (uint64, bool, error) {
	info, err := c.Mint(ctx, mint)
	if err != nil {
		return 0, false, err
	}
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, false, fmt.Errorf("parsing owner %q: %w", owner, err)
	}
	ata, err := AssociatedTokenAddress(ownerKey, info.Address, info.Program)
	if err != nil {
		return 0, false, err
	}

	out, err := c.rpc.GetAccountInfoWithOpts(ctx, ata, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.opts.Commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("fetching token account %s: %w", ata, err)
	}
	acct, err := DecodeTokenAccount(out.Value.Data.GetBinary())
	if err != nil {
		return 0, false, err
	}
	return acct.Amount, true, nil
}

// Transfer builds, signs, submits and confirms one transfer. When the
// destination has no token account one is created in the same transaction.
func (c *Client) Transfer(ctx context.Context, req engine.TransferRequest) (string, error) {
	log := logging.FromContext(ctx)

	info, err := c.Mint(ctx, req.Mint)
	if err != nil {
		return "", err
	}
	ixs, err := c.instructions(ctx, info, req)
	if err != nil {
		return "", err
	}

	hash, err := c.rpc.GetLatestBlockhash(ctx, c.opts.Commitment)
	if err != nil {
		return "", fmt.Errorf("getting latest blockhash: %w", err)
	}
	payer := c.Signer()
	tx, err := solana.NewTransaction(ixs, hash.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return "", fmt.Errorf("building transaction: %w", err)
	}
	if _, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &c.signer
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: c.opts.Commitment,
	})
	if err != nil {
		return "", fmt.Errorf("sending transaction: %w", err)
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "solana").
		Str("operation", "send_transaction").
		Str("wallet", req.Destination).
		Str("mint", req.Mint).
		Str("tx", sig.String()).
		Int("instructions", len(ixs)).
		Msg("transaction submitted")

	if err = c.confirm(ctx, sig); err != nil {
		return "", err
	}
	return sig.String(), nil
}

// instructions builds the instruction list for req.
func (c *Client) instructions(ctx context.Context, info MintInfo, req engine.TransferRequest) ([]solana.Instruction, error) {
	payer := c.Signer()
	dest, err := solana.PublicKeyFromBase58(req.Destination)
	if err != nil {
		return nil, fmt.Errorf("parsing destination %q: %w", req.Destination, err)
	}
	destATA, err := AssociatedTokenAddress(dest, info.Address, info.Program)
	if err != nil {
		return nil, err
	}

	var ixs []solana.Instruction
	exists, err := c.accountExists(ctx, destATA)
	if err != nil {
		return nil, err
	}
	if !exists {
		ixs = append(ixs, CreateATAIdempotent(payer, destATA, dest, info.Address, info.Program))
	}

	if c.opts.MintIfAuthority && info.IsAuthority(payer) {
		ix, mintErr := MintToChecked(req.Amount, info.Decimals, info.Address, destATA, payer, info.Program)
		if mintErr != nil {
			return nil, mintErr
		}
		return append(ixs, ix), nil
	}

	source, err := c.sourceAccount(info, req.SourceAccount)
	if err != nil {
		return nil, err
	}
	ix, err := TransferChecked(req.Amount, info.Decimals, source, info.Address, destATA, payer, info.Program)
	if err != nil {
		return nil, err
	}
	ixs = append(ixs, ix)

	if req.IsNFT && req.CloseSource {
		closeIx, closeErr := CloseAccount(source, payer, payer, info.Program)
		if closeErr != nil {
			return nil, closeErr
		}
		ixs = append(ixs, closeIx)
	}
	return ixs, nil
}

func (c *Client) sourceAccount(info MintInfo, explicit string) (solana.PublicKey, error) {
	if explicit != "" {
		key, err := solana.PublicKeyFromBase58(explicit)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("parsing source account %q: %w", explicit, err)
		}
		return key, nil
	}
	return AssociatedTokenAddress(c.Signer(), info.Address, info.Program)
}

func (c *Client) accountExists(ctx context.Context, key solana.PublicKey) (bool, error) {
	_, err := c.rpc.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.opts.Commitment,
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("fetching account %s: %w", key, err)
}

// confirm polls the signature until it reaches the configured commitment,
// fails on chain, or the confirm timeout passes.
func (c *Client) confirm(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()

	want := commitmentRank(rpc.ConfirmationStatusType(c.opts.Commitment))
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err == nil && out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTxFailed, sig, status.Err)
			}
			if commitmentRank(status.ConfirmationStatus) >= want {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s after %s", ErrConfirmTimeout, sig, c.opts.ConfirmTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func commitmentRank(s rpc.ConfirmationStatusType) int {
	switch s {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	default:
		return 0
	}
}
