// Package dag provides a small directed acyclic graph keyed by string IDs. It
// orders field definitions so that every field is created after the fields it
// refers to, and reports reference cycles.
package dag
