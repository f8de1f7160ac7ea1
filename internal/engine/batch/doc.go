// Package batch splits a list of items into fixed-size batches and runs them
// in order.
//
// Batches never overlap: batch K+1 starts only after every item of batch K has
// settled. FanOut additionally runs the items of a single batch concurrently,
// which bounds the number of in-flight operations to the batch size. Progress
// is tracked per item and per batch for UI updates.
package batch
