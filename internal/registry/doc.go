// Package registry tracks the variable namespaces of registered modules.
//
// Every module owns a *vars.Table. Registering it makes the table reachable
// from dotted placeholders (${std.OUTDIR}) and from the template resolver. A
// module may declare superglobals: names whose value is kept identical between
// its table and the global Context. Whichever side already holds a value at
// registration time wins; the Context wins when both do.
//
// The names "" and "v" are reserved aliases for the Context itself.
package registry
