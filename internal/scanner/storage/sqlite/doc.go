// Package sqlite contains the SQLite run store for scanner registration
// results.
//
// A run is one completed reconstruction: its parameters, the resolved pose
// of every scanner and the deduplicated global beacons. Keeping SQL here
// leaves the layer packages (L1-L4) free of storage concerns.
package sqlite
