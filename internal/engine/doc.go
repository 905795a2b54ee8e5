// Package engine holds one interpolation session: the global Context, the
// namespace registry, the template resolver, the executor factories and the
// command-line mini-language runner.
//
// All state belongs to an Engine value. Two engines never share variables, so
// independent runs can coexist in one process.
package engine
