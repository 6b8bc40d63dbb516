// Package feed generates a synthetic price per instrument per tick.
//
// The generator:
//   - Seeds a starting price per instrument from a wide random range
//   - Advances every price once per tick with a bounded random walk
//   - Never produces a non-positive price
//   - Invokes registered tick handlers after each regeneration
package feed
