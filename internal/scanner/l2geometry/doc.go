// Package l2geometry owns Layer 2 (Geometry) of the scanner data model.
//
// Responsibilities: exact integer beacon arithmetic and the fixed table of
// 24 orientation-preserving axis rotations.
// Key types: Beacon, Rotation.
//
// Dependency rule: L2 imports no other layer; L1 and L3+ build on it.
package l2geometry
