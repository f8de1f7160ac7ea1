// Package engine is the batch transfer engine.
//
// A pass takes an ordered list of Targets, splits it into batches of a fixed
// size and runs the batches in sequence, with the targets of one batch in
// flight concurrently. Every target yields exactly one Outcome. A failing
// transfer is recorded and never stops its batch or the pass; after the last
// batch all failures of the pass are appended to a JSON failure list in one
// write. A retry pass replays such a list and records what still fails in a
// separate list.
//
// Transfers and balance lookups are performed by the Transferer and
// BalanceReader capabilities; the engine knows nothing about the ledger.
package engine
