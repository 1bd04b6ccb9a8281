/*
Package builder is responsible for the construction of a field module. It acts
as the bridge between the static configuration model (defined in the 'config'
package) and the evaluation engine (the 'field' package).

The primary artifact produced by this package is a populated *field.Module whose
region holds the model's mesh and whose fields are ready to evaluate.

The construction is a multi-phase process:

 1. Mesh Creation: The builder creates the region, its nodes, its elements and
    its nodeset groups. Element shapes are resolved by name and every node an
    element or nodeset refers to must already exist.

 2. Dependency Linking: Field arguments refer to other fields through
    expressions such as `field.coordinates[0]`. The builder collects these
    references and records them as edges of a `dag.Graph`. A reference to a
    field the model does not define is an error.

 3. Field Creation: The graph is sorted topologically and each field is
    created by the operator registered for its type. The `field` variable
    available to expressions only holds the fields created so far, so an
    argument can never observe a field that does not exist yet. Every field
    created here is managed by the module.

 4. Stored Values: Finally the values and mesh locations listed in node blocks
    are assigned through the fields that own them, inside a single change
    batch.
*/
package builder
