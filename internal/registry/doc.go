// Package registry provides the central "glue" for the operator module system.
//
// The Registry maps the `type` strings used in model files (e.g.
// "nodeset_sum") to the compiled Go builders that create fields of that type,
// together with the arguments each type accepts. During startup every module
// registers its operators, and the loaded model is then validated against
// the registry so that unknown types and misspelled arguments are reported
// before any field is created.
package registry
