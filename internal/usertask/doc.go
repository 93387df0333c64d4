// Package usertask keeps a locally cached view of the user tasks that are
// currently active in the engine.
//
// A Registry runs one background loop that leases every job of the user task
// topic with a short lock, folds the leased batches into a candidate map, and
// swaps that map in as the new snapshot once the lease call completes. Readers
// only ever see a complete snapshot. Tasks completed through the registry are
// removed immediately and remembered for a while so a lease call that was
// already in flight cannot bring them back.
package usertask
