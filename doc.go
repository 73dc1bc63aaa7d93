/*
Package hwgraph provides the necessary tools to describe synchronous digital
circuits in Go and generate code for them.

A design is built inside a Context, which owns a set of named Modules. Each
Module holds a graph of fixed-width Signal expressions along with its state
elements (registers and memories) and instances of other modules. Once a
module graph is validated, two backends can translate it: package sim
generates a cycle-accurate Go simulator (and can interpret the graph
directly), and package verilog emits a structural Verilog description. Both
backends consume the same validated evaluation plan and are required to
produce bit-exact, mutually consistent behavior.

All circuits are purely synchronous with a single implicit clock: signal
values are recomputed every step from the step's inputs and the state
committed at the end of the previous step, and all registers and memory
writes commit together at the end of the step.

Builder methods panic on misuse (duplicate names, width mismatches,
cross-module operands); the panic values carry descriptive errors. Problems
that can only be detected on a finished graph (combinational loops, undriven
registers) are reported by Validate, which both backends run before
generating anything.

*/
package hwgraph
