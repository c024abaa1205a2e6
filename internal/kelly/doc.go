// Package kelly turns a price history into two wealth trajectories: the all-in
// path that simply holds the asset, and a path sized by a bucketed Kelly estimate.
//
// The pipeline is normalize → sample transitions → estimate per-bin edges →
// simulate. Everything runs once, synchronously, over an already fetched history.
package kelly
