// Package l3align owns Layer 3 (Alignment) of the scanner data model.
//
// Responsibilities: translation-invariant offset indexes and the pairwise
// search for a rotation and translation that makes one scanner's beacons
// coincide with another's.
// Key types: OffsetIndex, Aligner, Match.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3align
