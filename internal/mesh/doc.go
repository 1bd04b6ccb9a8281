// Package mesh is the in-memory finite-element domain the field engine
// evaluates over: nodes, elements grouped into meshes by dimension, nodesets,
// and the degree-of-freedom store that node-valued fields read and write.
//
// The field engine treats everything here as an external collaborator. It
// only relies on iteration over nodesets and meshes, linear Lagrange basis
// evaluation for elements, per-node value storage, and the region modify
// counter used to detect that stored data changed under a field cache.
//
// A Region is not safe for concurrent use.
package mesh
