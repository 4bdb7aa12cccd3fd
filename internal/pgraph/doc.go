// Package pgraph owns the principal-graph model and its refinement
// operations.
//
// A principal graph is a piecewise-linear skeleton fitted to a weighted
// 2D point cloud. Vertices carry a Kind (End, Line, Corner, T, Y, X and
// the star shapes) that is kept in step with their degree by the
// Degrade, Maintain and Restructure transitions. Every sample point is
// owned by exactly one cluster, either the cluster of its nearest edge or
// that of the edge endpoint it projects beyond.
//
// Responsibilities:
//   - Nearest-segment (Voronoi) repartition with a moving-bound cache.
//   - Graph surgery: midpoint insertion, line-vertex and general deletion.
//   - The penalised criterion (MSE plus angle, length and weight-difference
//     penalties) and the closed-form per-vertex optimum that drives
//     steepest descent.
//   - Seeding from the first principal component, merging seed curves,
//     and converting the fitted graph back to curves.
//
// Vertices and edges live in arenas addressed by generational handles
// (VertexID, EdgeID). A handle to a removed element never resolves again,
// so stale references surface as ErrStaleHandle instead of aliasing a
// reused slot.
//
// Key types: Graph, VertexID, EdgeID, Kind, Point, Snapshot.
package pgraph
