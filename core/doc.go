// Package core contains the mailbox delivery contracts, entities and the
// scheduler, drainer and executor that move payloads out of the store.
// Storage, HTTP and queue adapters depend on this package; core must not
// depend on them.
package core
