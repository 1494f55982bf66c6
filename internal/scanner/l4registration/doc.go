// Package l4registration owns Layer 4 (Registration) of the scanner data
// model.
//
// Responsibilities: driving every scanner from Unregistered to Registered
// by repeated pairwise alignment against already-placed scanners, and
// accumulating the deduplicated global beacon set.
// Key types: Scanner, Engine, BeaconSet, Result.
//
// Dependency rule: L4 may depend on L1-L3. No SQL or rendering code is
// allowed in this package; see storage/sqlite and monitor.
package l4registration
