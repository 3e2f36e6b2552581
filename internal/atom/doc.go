// Package atom provides the typed identifiers used by the fact schema.
//
// This package contains value types only. Every other internal package may
// import atom; atom imports nothing internal.
//
// Five domains exist: Origin, Loan, Point, Variable and Path. They share a
// representation (a caller-supplied uint64, typically a frontend node id) but
// are distinct Go types, so a Variable can never be passed where a Point is
// expected. No range or uniqueness validation is performed: the frontend is
// trusted to hand out stable ids, and two different integers always denote two
// different entities of the same domain.
package atom
