// Package ledger implements the marketplace ledger: offerings listed for a
// fee, per-offering purchase requests backed by deposits, and the escrow
// that holds fees and deposits until offerings are removed.
//
// Every mutating operation is validated against committed state, staged,
// appended to a Journal and only then applied. A rejected or unjournaled
// operation leaves the ledger exactly as it was. Committed operations emit
// events to subscribers in journal order.
package ledger
