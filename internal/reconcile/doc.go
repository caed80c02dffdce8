// Package reconcile merges an auction's fetched snapshot with the
// unordered, at-least-once stream of incremental bid updates.
//
// Correctness rests on two mechanisms, independent of delivery order:
//   - every bid event is deduplicated by (bidder, bidTime, amount)
//   - the current price is recomputed locally as the maximum of the
//     snapshot price and all accepted bid amounts, so it is monotonic
//     by construction rather than by trusting update order
//
// Updates arriving before the snapshot lands are buffered and replayed
// in arrival order once Initialize is called.
package reconcile
