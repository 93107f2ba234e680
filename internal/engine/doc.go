// Package engine implements the incremental, priority-scheduled reconciliation
// engine.
//
// ARCHITECTURE:
//
// Single Worker:
// Submit may be called from any goroutine; it only appends to the ingress
// queue. Everything else (lane assignment, rendering, commit) happens on one
// worker that calls Work, Flush or Run. Concurrency here means
// interruptibility, not parallelism.
//
// Pass Flow:
//  1. Submissions are drained into the lane Assignor, which stamps lane and
//     expiration and marks the lane on the current nodes along the path
//  2. The next lanes are selected: the most urgent pending lane plus every
//     expired lane
//  3. The work loop walks the work-in-progress tree depth-first with a cursor
//     and an explicit parent stack, reconciling one node per unit
//  4. Between units it checks the frame budget and yields when exhausted;
//     the host resumes it with another Work call
//  5. When the tree is complete the commit package applies it to the host in
//     one uninterruptible call and the tree becomes current
//
// Abandonment:
// A more urgent arrival discards the partial tree wholesale and restarts from
// current. The current tree is never written during rendering, so abandonment
// is always safe.
//
// Ordering:
// Submissions are stamped with a monotonic seq from Clock. Within a pass the
// last submission for a subtree wins; a pass includes only submissions up to
// the seq observed when it started.
package engine
