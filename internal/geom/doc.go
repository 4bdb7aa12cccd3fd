// Package geom holds the small amount of planar geometry the fitting engine
// needs on top of gonum's r2 vectors: point-to-segment distance and
// projection, angles at a vertex, bearings, and the circumcenter and
// line-intersection constructions.
//
// Constructions that have no solution for parallel or collinear input
// report ok=false rather than returning NaN or panicking.
package geom
