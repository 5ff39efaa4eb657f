package grammar

import "sync"

// SchemaLess returns the schema of streams encoded without a schema: any root
// element, every element walked with a built-in grammar.
var SchemaLess = sync.OnceValue(func() *Schema {
	return &Schema{Document: Document()}
})
