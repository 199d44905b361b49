// Package relmap is a relational persistence core. It maps entity graphs to
// rows across one or more tables, builds multi-table join queries, rebuilds
// object graphs from query results and executes batched writes with
// optimistic-concurrency detection.
//
// The root package only holds the error taxonomy shared by the sub-packages:
//
//   - StaleObjectError: a write affected fewer rows than it intended to.
//   - ConfigError: a join tree or a mapping was built incorrectly.
//   - ExecutionError: the database driver failed while preparing,
//     executing or reading a statement.
//   - ConstraintError: a statement violated a database constraint. It is
//     found wrapped inside an ExecutionError.
//   - NotFoundError: a single entity lookup found no row.
//
// # Sub-packages
//
//   - schema: tables and columns referenced by mappings
//   - mapping: the object/table binding contract and a func-based Mapper
//   - dialect/sql: driver, transactions, batching and parameter lists
//   - dialect/sql/sqlgraph: join trees and row-to-graph transformation
//   - block: splitting key sequences into parameter-sized blocks
//   - persist: batched insert, update, delete and select executors
//   - config, metrics: file configuration and prometheus collectors
package relmap
