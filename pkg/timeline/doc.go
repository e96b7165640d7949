// Package timeline turns a memory-event trace into a positioned access
// timeline.
//
// [Build] runs two passes over the event stream. [Aggregate] (pass 1) sums
// allocation sizes per role partition and finds the peak footprint and the
// number of access events; these fix the horizontal and vertical scales.
// Pass 2 walks the stream again and places every allocation as a
// [Container] rectangle:
//
//   - x is the logical time of the allocation times ScaleX; only access
//     events advance time.
//   - height is the size in bytes times ScaleY.
//   - y comes from stacking the container on top of its role partition.
//     Partitions are stacked upward from zero in the order input-only,
//     input-output, output-only, other; later allocations in a partition
//     sit above earlier ones until they are freed.
//
// While placing, pass 2 collects read and write [Access] marks, rebuilds
// the nesting of [Scope] intervals from scope_entry/scope_exit markers (or
// flattens the tree supplied with a legacy trace) and traces the outline of
// the footprint as a polygon, which [Simplify] then thins out.
//
// Finally every container gets its [Reuse] statistics and the layout
// records the medians over all containers.
//
// Recoverable inconsistencies (freeing an unknown buffer, closing an
// unknown scope, touching a buffer that is not live, an unparsable size)
// are logged as warnings and counted in [Layout.Warnings]; they never abort
// the build.
//
// # Degenerate traces
//
// Scales are computed without guards: a trace without accesses has
// ScaleX = +Inf, and a trace that never allocates has ScaleY = NaN. These
// values are propagated so that consumers can see the anomaly.
package timeline
