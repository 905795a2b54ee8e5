// Package config reads HCL configuration files into ordered variable
// assignments.
//
// A file holds top-level attributes, which assign variables of the global
// Context, and `namespace "NAME" { ... }` blocks, which assign variables of a
// registered namespace:
//
//	OUTDIR = "out"
//	MS     = "obs.ms"
//
//	namespace "std" {
//	  STEP = 1
//	}
//
// Attributes are evaluated in source order. Each expression sees the variables
// handed to the loader plus every attribute assigned before it, so `B = A`
// works after `A = "x"`. Namespace variables are visible as objects
// (`std.STEP`). HCL reserves `${...}`, so engine placeholders inside strings are
// written `$NAME` or escaped as `$${NAME}`.
package config
