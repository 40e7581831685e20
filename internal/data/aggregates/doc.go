// Package aggregates implements the domain aggregate contracts on top of the
// table-level repos in internal/data/repos.
//
// Every write method owns its transaction: the snapshot row lock, the derived
// fields and any alerts it opens commit or roll back together.
package aggregates
