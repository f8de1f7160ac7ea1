package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/splairdrop/internal/cli"
	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/engine"
)

// Valid base58 public keys used as wallets and mints.
const (
	testMint    = "So11111111111111111111111111111111111111112"
	walletA     = "SysvarRent111111111111111111111111111111111"
	walletB     = "SysvarC1ock11111111111111111111111111111111"
	walletC     = "Vote111111111111111111111111111111111111111"
	walletD     = "Stake11111111111111111111111111111111111111"
	deniedEscro = "GUfCR9mK6azb9vcpsxgXyj7XRPAKJd4KMHTTVvtncGgp"
)

// fakeLedger records transfers in memory and fails configured destinations.
type fakeLedger struct {
	mu        sync.Mutex
	decimals  uint8
	fail      map[string]error
	balances  map[string]uint64
	transfers []engine.TransferRequest
}

func newFakeLedger(decimals uint8) *fakeLedger {
	return &fakeLedger{
		decimals: decimals,
		fail:     map[string]error{},
		balances: map[string]uint64{},
	}
}

func (l *fakeLedger) Transfer(_ context.Context, req engine.TransferRequest) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transfers = append(l.transfers, req)
	if err, ok := l.fail[req.Destination]; ok {
		return "", err
	}
	l.balances[req.Destination+"/"+req.Mint] += req.Amount
	return "sig-" + req.Destination, nil
}

func (l *fakeLedger) Balance(_ context.Context, owner, mint string) (uint64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.balances[owner+"/"+mint]
	return v, ok, nil
}

func (l *fakeLedger) Decimals(context.Context, string) (uint8, error) {
	return l.decimals, nil
}

func (l *fakeLedger) sent() []engine.TransferRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]engine.TransferRequest(nil), l.transfers...)
}

// harness runs the root command against a fake ledger in a temp directory.
type harness struct {
	t       *testing.T
	dir     string
	logDir  string
	env     map[string]string
	ledger  *fakeLedger
	dialed  int
	dialCfg *config.Config
	stdin   string
	tty     bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		t:      t,
		dir:    dir,
		logDir: filepath.Join(dir, "logs"),
		env: map[string]string{
			config.EnvHome:     filepath.Join(dir, "home"),
			config.EnvLogLevel: "error",
		},
		ledger: newFakeLedger(6),
	}
}

func (h *harness) deps() cli.Deps {
	return cli.Deps{
		LookupEnv: func(k string) (string, bool) {
			v, ok := h.env[k]
			return v, ok
		},
		Dial: func(cfg *config.Config) (cli.Ledger, error) {
			h.dialed++
			h.dialCfg = cfg
			return h.ledger, nil
		},
		Interactive: func() bool { return h.tty },
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmdWithDeps("test", h.deps())
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(h.stdin))
	cmd.SetArgs(append(args, "--log-dir", h.logDir))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) writeJSON(name string, v any) string {
	h.t.Helper()
	data, err := json.Marshal(v)
	require.NoError(h.t, err)
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, data, 0o600))
	return path
}

func (h *harness) airdropList(wallets ...string) string {
	return h.writeJSON("airdrop.json", map[string]any{"mint": testMint, "wallets": wallets})
}

func readRecords(t *testing.T, path string) []config.FailureRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []config.FailureRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestAirdropToken_PersistsFailures(t *testing.T) {
	h := newHarness(t)
	h.ledger.fail[walletB] = errors.New("blockhash not found")
	list := h.airdropList(walletA, walletB, walletC)

	out, err := h.run("airdrop-token", "--airdroplist", list, "--amount", "1.5")
	require.NoError(t, err, "partial failure is not a command error")

	sent := h.ledger.sent()
	require.Len(t, sent, 3)
	for _, req := range sent {
		assert.Equal(t, uint64(1_500_000), req.Amount)
		assert.Equal(t, testMint, req.Mint)
	}

	records := readRecords(t, filepath.Join(h.logDir, "transfererror.json"))
	require.Len(t, records, 1)
	assert.Equal(t, walletB, records[0].Wallet)
	assert.Equal(t, uint64(1_500_000), records[0].TransferAmount)
	assert.Contains(t, records[0].Error, "blockhash not found")

	assert.Contains(t, out, "AIRDROP-TOKEN SUMMARY")
	assert.Contains(t, out, "Succeeded:    2")
	assert.Contains(t, out, "Failed:       1")

	transcript, err := os.ReadFile(filepath.Join(h.logDir, "tokentransfer.txt"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(transcript), "\n"))
}

func TestAirdropToken_SkipsFundedWallets(t *testing.T) {
	h := newHarness(t)
	h.ledger.balances[walletA+"/"+testMint] = 2_000_000
	list := h.airdropList(walletA, walletB)

	out, err := h.run("airdrop-token", "--airdroplist", list, "--amount", "2")
	require.NoError(t, err)
	require.Len(t, h.ledger.sent(), 1)
	assert.Equal(t, walletB, h.ledger.sent()[0].Destination)
	assert.Contains(t, out, "Skipped:      1")

	h2 := newHarness(t)
	h2.ledger.balances[walletA+"/"+testMint] = 2_000_000
	_, err = h2.run("airdrop-token", "--airdroplist", h2.airdropList(walletA, walletB),
		"--amount", "2", "--override-balance-check")
	require.NoError(t, err)
	assert.Len(t, h2.ledger.sent(), 2)
}

func TestAirdropToken_FiltersInOrder(t *testing.T) {
	h := newHarness(t)
	list := h.airdropList(deniedEscro, walletA, walletB, walletC, walletD)
	exclusions := h.writeJSON("exclude.json", []string{walletD})

	out, err := h.run("airdrop-token", "--airdroplist", list, "--amount", "1",
		"--exclusionlist", exclusions, "--start-from", "1", "--simulate")
	require.NoError(t, err)
	assert.Zero(t, h.dialed, "simulate never dials the ledger")

	var sim []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	require.Len(t, sim, 2)
	assert.Equal(t, walletB, sim[0]["wallet"])
	assert.Equal(t, walletC, sim[1]["wallet"])
	assert.Equal(t, "1", sim[0]["amount"])
}

func TestAirdropToken_FlagsReachDialer(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("airdrop-token", "--airdroplist", h.airdropList(walletA), "--amount", "1",
		"--use-token2022", "--mint-authority")
	require.NoError(t, err)
	require.NotNil(t, h.dialCfg)
	assert.True(t, h.dialCfg.Transfer.UseToken2022)
	assert.True(t, h.dialCfg.Transfer.MintIfAuthority)
}

func TestAirdropToken_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "zero amount", args: []string{"--amount", "0"}, wantErr: "greater than zero"},
		{name: "bad amount", args: []string{"--amount", "ten"}, wantErr: "invalid --amount"},
		{name: "negative start", args: []string{"--amount", "1", "--start-from", "-1"}, wantErr: "--start-from"},
		{name: "batch too large", args: []string{"--amount", "1", "--batch-size", "1001"}, wantErr: "--batch-size"},
		{name: "too many decimals", args: []string{"--amount", "0.0000001"}, wantErr: "decimals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			args := append([]string{"airdrop-token", "--airdroplist", h.airdropList(walletA)}, tt.args...)
			_, err := h.run(args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, h.ledger.sent())
		})
	}
}

func TestAirdropTokenPerNFT(t *testing.T) {
	h := newHarness(t)
	holders := h.writeJSON("holders.json", []map[string]any{
		{"walletId": walletA, "totalAmount": 3},
		{"walletId": walletB, "totalAmount": 0},
		{"walletId": walletC, "totalAmount": 1},
		{"walletId": deniedEscro, "totalAmount": 40},
	})

	out, err := h.run("airdrop-token-per-nft", "--mintid", testMint, "--amount", "2.5",
		"--decimals", "2", "--airdroplist", holders, "--simulate")
	require.NoError(t, err)

	var sim []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	require.Len(t, sim, 2)
	assert.Equal(t, walletA, sim[0]["wallet"])
	assert.Equal(t, "7.5", sim[0]["amount"])
	assert.EqualValues(t, 3, sim[0]["holdings"])

	_, err = h.run("airdrop-token-per-nft", "--mintid", testMint, "--amount", "2.5",
		"--decimals", "2", "--airdroplist", holders)
	require.NoError(t, err)
	sent := h.ledger.sent()
	require.Len(t, sent, 2)
	amounts := map[string]uint64{}
	for _, req := range sent {
		amounts[req.Destination] = req.Amount
	}
	assert.Equal(t, map[string]uint64{walletA: 750, walletC: 250}, amounts)
}

func TestAirdropTokenPerNFT_InvalidMint(t *testing.T) {
	h := newHarness(t)
	holders := h.writeJSON("holders.json", []map[string]any{{"walletId": walletA, "totalAmount": 1}})
	_, err := h.run("airdrop-token-per-nft", "--mintid", "not-a-mint", "--amount", "1", "--airdroplist", holders)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--mintid")
}

func TestAirdropNFT(t *testing.T) {
	h := newHarness(t)
	mints := h.writeJSON("mints.json", []string{walletD, walletC, testMint})
	dist := h.writeJSON("dist.json", map[string]any{
		"distributionList": []map[string]any{
			{"wallet": walletA, "nFtsToAirdrop": 2},
			{"wallet": walletB, "nFtsToAirdrop": 1},
		},
	})

	_, err := h.run("airdrop-nft", "--mintIds", mints, "--airdroplist", dist, "--close-accounts")
	require.NoError(t, err)

	sent := h.ledger.sent()
	require.Len(t, sent, 3)
	byMint := map[string]engine.TransferRequest{}
	for _, req := range sent {
		byMint[req.Mint] = req
		assert.True(t, req.IsNFT)
		assert.True(t, req.CloseSource)
		assert.Equal(t, uint64(1), req.Amount)
	}
	assert.Equal(t, walletA, byMint[walletD].Destination)
	assert.Equal(t, walletA, byMint[walletC].Destination)
	assert.Equal(t, walletB, byMint[testMint].Destination)
}

func TestAirdropNFT_NotEnoughMints(t *testing.T) {
	h := newHarness(t)
	mints := h.writeJSON("mints.json", []string{walletD})
	dist := h.writeJSON("dist.json", map[string]any{
		"distributionList": []map[string]any{{"wallet": walletA, "nFtsToAirdrop": 2}},
	})
	_, err := h.run("airdrop-nft", "--mintIds", mints, "--airdroplist", dist)
	require.Error(t, err)
	assert.Empty(t, h.ledger.sent())
	assert.Zero(t, h.dialed)
}

func TestRetryErrors_WritesSeparateList(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.logDir, 0o750))
	firstPass := []config.FailureRecord{
		{Wallet: walletA, Mint: testMint, TransferAmount: 500, Error: "timeout"},
		{Wallet: walletB, Mint: testMint, TransferAmount: 700, Error: "timeout"},
	}
	data, err := json.Marshal(firstPass)
	require.NoError(t, err)
	firstPath := filepath.Join(h.logDir, "transfererror.json")
	require.NoError(t, os.WriteFile(firstPath, data, 0o600))

	h.ledger.fail[walletB] = errors.New("still failing")
	out, err := h.run("retry-errors")
	require.NoError(t, err)
	assert.Contains(t, out, "RETRY-ERRORS SUMMARY")

	sent := h.ledger.sent()
	require.Len(t, sent, 2)

	retry := readRecords(t, filepath.Join(h.logDir, "retrytransfererror.json"))
	require.Len(t, retry, 1)
	assert.Equal(t, walletB, retry[0].Wallet)
	assert.Equal(t, uint64(700), retry[0].TransferAmount)

	unchanged, err := os.ReadFile(firstPath)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(unchanged), "the input list is never rewritten")
}

func TestRetryErrors_RetryOfRetryList(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.logDir, 0o750))
	retryPath := filepath.Join(h.logDir, "retrytransfererror.json")
	seed := []config.FailureRecord{
		{Wallet: walletA, Mint: testMint, TransferAmount: 500, Error: "timeout"},
		{Wallet: walletB, Mint: testMint, TransferAmount: 700, Error: "timeout"},
	}
	data, err := json.Marshal(seed)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(retryPath, data, 0o600))

	h.ledger.fail[walletA] = errors.New("still failing")
	h.ledger.fail[walletB] = errors.New("still failing")

	for round := 1; round <= 2; round++ {
		_, err = h.run("retry-errors", "--errorsPath", retryPath)
		require.NoError(t, err)

		retry := readRecords(t, retryPath)
		require.Len(t, retry, 2, "round %d: failures must not pile onto the replayed list", round)
		assert.Equal(t, walletA, retry[0].Wallet)
		assert.Equal(t, walletB, retry[1].Wallet)

		archives, globErr := filepath.Glob(filepath.Join(h.logDir, "retrytransfererror.*.json"))
		require.NoError(t, globErr)
		require.Len(t, archives, round)
	}
	assert.Len(t, h.ledger.sent(), 4)

	archives, err := filepath.Glob(filepath.Join(h.logDir, "retrytransfererror.*.json"))
	require.NoError(t, err)
	sort.Strings(archives)
	first := readRecords(t, archives[0])
	require.Len(t, first, 2)
	assert.Equal(t, "timeout", first[0].Error)
}

func TestRetryErrors_SimulateKeepsRetryList(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.logDir, 0o750))
	records := []config.FailureRecord{{Wallet: walletA, Mint: testMint, TransferAmount: 5, Error: "x"}}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	retryPath := filepath.Join(h.logDir, "retrytransfererror.json")
	require.NoError(t, os.WriteFile(retryPath, data, 0o600))

	_, err = h.run("retry-errors", "--errorsPath", retryPath, "--simulate")
	require.NoError(t, err)
	assert.FileExists(t, retryPath)

	archives, err := filepath.Glob(filepath.Join(h.logDir, "retrytransfererror.*.json"))
	require.NoError(t, err)
	assert.Empty(t, archives)
}

func TestRetryErrors_Simulate(t *testing.T) {
	h := newHarness(t)
	records := []config.FailureRecord{{Wallet: walletA, Mint: testMint, TransferAmount: 5, Error: "x"}}
	path := h.writeJSON("errors.json", records)

	out, err := h.run("retry-errors", "--errorsPath", path, "--simulate")
	require.NoError(t, err)
	assert.Zero(t, h.dialed)
	assert.Equal(t, records, decodeRecords(t, out))
}

func TestRetryErrors_MissingList(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("retry-errors", "--errorsPath", filepath.Join(h.dir, "missing.json"))
	require.Error(t, err)
	assert.Zero(t, h.dialed)
}

func decodeRecords(t *testing.T, s string) []config.FailureRecord {
	t.Helper()
	var records []config.FailureRecord
	require.NoError(t, json.Unmarshal([]byte(s), &records))
	return records
}

func TestFreshResetsFailureLists(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.logDir, 0o750))
	stale := filepath.Join(h.logDir, "retrytransfererror.json")
	require.NoError(t, os.WriteFile(stale, []byte(`[{"wallet":"x"}]`), 0o600))

	_, err := h.run("airdrop-token", "--airdroplist", h.airdropList(walletA), "--amount", "1", "--fresh")
	require.NoError(t, err)
	assert.Empty(t, readRecords(t, stale))
}

func TestMainnetConfirmation(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		h := newHarness(t)
		h.tty = true
		h.stdin = "n\n"
		_, err := h.run("airdrop-token", "-e", "mainnet-beta", "--airdroplist", h.airdropList(walletA), "--amount", "1")
		require.ErrorIs(t, err, cli.ErrAborted)
		assert.Empty(t, h.ledger.sent())
	})

	t.Run("yes flag", func(t *testing.T) {
		h := newHarness(t)
		h.tty = true
		_, err := h.run("airdrop-token", "-e", "mainnet-beta", "--yes",
			"--airdroplist", h.airdropList(walletA), "--amount", "1")
		require.NoError(t, err)
		assert.Len(t, h.ledger.sent(), 1)
	})

	t.Run("non-interactive", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run("airdrop-token", "-e", "mainnet-beta", "--airdroplist", h.airdropList(walletA), "--amount", "1")
		require.NoError(t, err)
		assert.Len(t, h.ledger.sent(), 1)
	})
}

func TestConfirmMainnet(t *testing.T) {
	tests := []struct {
		input    string
		accepted bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"\n", false},
		{"no\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		res := cli.ConfirmMainnet(&out, strings.NewReader(tt.input), "airdrop-token", 12)
		assert.Equal(t, tt.accepted, res.Accepted, "input %q", tt.input)
		assert.False(t, res.Cancelled)
		assert.Contains(t, out.String(), "12 transfers on mainnet-beta")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "cfg", "config.yaml")

	out, err := h.run("config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialized at "+path)
	require.FileExists(t, path)

	_, err = h.run("config", "init", "--path", path)
	require.Error(t, err, "an existing file is kept without --force")

	_, err = h.run("config", "init", "--path", path, "--force")
	require.NoError(t, err)

	out, err = h.run("config", "show", "--config", path, "-e", "testnet")
	require.NoError(t, err)
	assert.Contains(t, out, "cluster: testnet")
}

func TestConfigLayering(t *testing.T) {
	h := newHarness(t)
	home := h.env[config.EnvHome]
	require.NoError(t, os.MkdirAll(home, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"),
		[]byte("cluster: testnet\nrpc_url: https://file.example\n"), 0o600))
	h.env[config.EnvRPCURL] = "https://env.example"

	out, err := h.run("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "cluster: testnet")
	assert.Contains(t, out, "rpc_url: https://env.example")

	out, err = h.run("config", "show", "-r", "https://flag.example")
	require.NoError(t, err)
	assert.Contains(t, out, "rpc_url: https://flag.example")

	_, err = h.run("config", "show", "-e", "localnet")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
