// Package field is the field evaluation and caching engine.
//
// A Field is a node in an acyclic graph of operators over a mesh.Region. A
// Cache holds one active Location and memoizes every field evaluated through
// it: a value cache is valid only while its evaluation counter equals the
// cache's location counter, so changing the location (or the region data
// under it) invalidates everything without touching memory.
//
// Operators that need to evaluate sources elsewhere, such as the nodeset
// reductions visiting every member node, do so in child caches owned by the
// caller's cache. Derivatives follow the same protocol through
// DerivativeValueCache, and Assign inverts evaluation, writing values back
// through sources into the region's node store.
//
// Errors wrap ErrArgument, ErrNotDefined or ErrGeneral; StatusOf maps them to
// integer status codes. ErrNotDefined is expected and non-fatal: a field
// without a value at a location never yields a zero vector instead.
//
// The engine is single-threaded. A Module and everything reachable from it
// must be used from one goroutine at a time.
package field
