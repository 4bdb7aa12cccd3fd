// Package stats owns the incremental cluster statistics used by the fitting
// engine.
//
// Responsibilities:
//   - Online: weighted mean and scaled variance with O(1) add and remove,
//     kept per graph vertex.
//   - Covariance: weighted first and uncentered second moments, kept per
//     graph edge, with the closed-form squared distance of the cluster to a
//     line and the numerator/denominator form of its minimiser. The
//     dominant eigenvector seeds the first principal line.
//
// Both accumulators return fixed fallbacks (zero, or "not defined") when
// their weight is zero instead of propagating NaN.
package stats
