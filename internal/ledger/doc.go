// Package ledger tracks per-session monetary cost as an append-only list of
// entries folded into a total.
package ledger
