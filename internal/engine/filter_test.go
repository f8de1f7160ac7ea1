package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/engine"
)

func TestEligiblePredicates(t *testing.T) {
	t.Parallel()

	exclude := engine.ExcludeAddresses([]string{"  a  ", "", "b"})
	assert.False(t, exclude("a"))
	assert.False(t, exclude("b "))
	assert.True(t, exclude("c"))

	deny := engine.DenyAddresses(config.DefaultDenyAddresses)
	assert.False(t, deny(config.DefaultDenyAddresses[0]))
	assert.True(t, deny("c"))

	all := engine.All(exclude, nil, engine.ExcludeAddresses([]string{"c"}))
	assert.False(t, all("a"))
	assert.False(t, all("c"))
	assert.True(t, all("d"))

	assert.True(t, engine.All()("anything"))
}

func TestFilterTargets(t *testing.T) {
	t.Parallel()

	targets := makeTargets(5, 1)
	kept, dropped := engine.FilterTargets(targets, engine.ExcludeAddresses([]string{"wallet-1", "wallet-3"}))
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []engine.Target{targets[0], targets[2], targets[4]}, kept)

	kept, dropped = engine.FilterTargets(targets, nil)
	assert.Zero(t, dropped)
	assert.Equal(t, targets, kept)
}

func TestStartFrom(t *testing.T) {
	t.Parallel()

	targets := makeTargets(4, 1)
	assert.Equal(t, targets, engine.StartFrom(targets, 0))
	assert.Equal(t, targets, engine.StartFrom(targets, -3))
	assert.Equal(t, targets[2:], engine.StartFrom(targets, 2))
	assert.Empty(t, engine.StartFrom(targets, 4))
	assert.Empty(t, engine.StartFrom(targets, 10))
}

func TestTargetsFromFailures(t *testing.T) {
	t.Parallel()

	records := []config.FailureRecord{
		{Wallet: "w1", Mint: "m1", TransferAmount: 10, Holdings: 2},
		{Wallet: "w2", Mint: "m2", TransferAmount: 1, IsNFT: true},
	}
	got := engine.TargetsFromFailures(records)
	assert.Equal(t, []engine.Target{
		{Destination: "w1", Mint: "m1", Amount: 10, Holdings: 2},
		{Destination: "w2", Mint: "m2", Amount: 1, IsNFT: true},
	}, got)

	rec := engine.RecordFromOutcome(engine.Outcome{Target: got[0], Status: engine.StatusFailure, Reason: "boom"})
	assert.Equal(t, "w1", rec.Wallet)
	assert.Equal(t, uint64(10), rec.TransferAmount)
	assert.Equal(t, 2, rec.Holdings)
	assert.Equal(t, "boom", rec.Error)
	assert.Equal(t, "ERROR: Failed to send 10 of m1 to w1.", rec.Message)
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", engine.StatusSuccess.String())
	assert.Equal(t, "failure", engine.StatusFailure.String())
	assert.Equal(t, "skipped", engine.StatusSkipped.String())
	assert.Equal(t, "status(9)", engine.Status(9).String())
}
