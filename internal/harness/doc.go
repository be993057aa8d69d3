// Package harness runs regression scenarios: build a spaxel table for one
// configuration tuple against a deterministic synthetic fixture, persist
// it to a dataset store, then evaluate declarative assertions on the
// result.
//
// Scenarios are YAML files decoded strictly (unknown fields are errors).
// Each scenario names a fixture (galaxy count, seed, grid size), a build
// configuration (binning scheme, component model, extinction correction,
// S/N floor), and a list of assertions. Assertion failures carry
// expected/actual context and never panic; a scenario's Result collects
// every failure rather than stopping at the first.
//
// Numeric regression identity comes from the table fingerprint: a rebuilt
// scenario that produces a byte-identical table maps to the same stored
// dataset. Golden files cover the stable, human-auditable surface (the
// dataset filename scheme).
package harness
