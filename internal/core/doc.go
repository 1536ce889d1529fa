// Package core provides the transformation logic for the person record feed.
//
// This package is the heart of the pipeline, containing all domain logic
// independent of any store or CLI. It can be driven by the pipeline runner,
// other tools, or tests without modification. Nothing here reads the clock:
// ages are computed against a reference date passed in by the caller.
//
// # Architecture
//
//   - Schema: [PersonSchema] fixes the 12 positional input columns and which
//     of them are numeric or mandatory.
//   - Values: every field is a [Value] that is null, text or a number.
//     Empty and NA-style markers are null (see [IsNA]).
//   - Validation: [Partition] splits a batch into complete rows and
//     [RejectedRecord]s before any derivation runs.
//   - Derivation: [Transformer] turns complete rows into [PersonDocument]s
//     and routes rows that fail derivation to the same quarantine.
//
// # Transform Flow
//
//  1. Partition rows by field count and nulls
//  2. Hand incomplete rows to the [QuarantineSink]
//  3. For each complete row: parse BirthDate, compose FullName, compute Age,
//     round and bucket Salary, nest the Address
//  4. Hand rows that failed step 3 to the sink
//
// # Error Handling
//
// Fatal errors are [PhaseError]s wrapping a sentinel such as [ErrRead] or
// [ErrInsert]. Row problems are [RowError]s and never abort a batch.
// [MapError] maps either kind to an operator-facing code:
//
//   - CFG001-CFG003: Configuration errors
//   - READ001-READ002: Input errors
//   - ROW001-ROW006: Quarantine reasons
//   - OUT001: Artifact write errors
//   - LOAD001-LOAD003: Store errors
package core
