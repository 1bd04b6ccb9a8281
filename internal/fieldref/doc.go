/*
Package fieldref parses and formats references to fields and their
components, in the form `name` or `name[index]` with a 0-based index.

The same form is used on the command line and for the component tokens that
model expressions evaluate `field.<name>` to.
*/
package fieldref
