// Package scanner is the root of the scanner registration data model.
//
// The model is split into numbered layers. L2 geometry is the shared
// vocabulary of every layer; otherwise a layer may depend only on the layers
// below it:
//
//	L1 l1records      text records: "--- scanner N ---" blocks of x,y,z lines
//	L2 l2geometry     integer beacons and the 24 proper axis rotations
//	L3 l3align        offset indexes and pairwise scanner alignment
//	L4 l4registration global frame reconstruction and beacon deduplication
//
// Storage (storage/sqlite) and presentation (monitor) sit beside the layers
// and consume L4 results. No SQL is allowed in the layer packages.
package scanner
