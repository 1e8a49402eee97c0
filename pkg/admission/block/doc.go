// Package block implements the temporary-block state machine for identities
// that exceed an admission budget.
//
// # States
//
// An identity is either absent (unblocked) or carries a block marker with a
// start time and duration. Exceeding any operation budget enters the blocked
// state; the state expires lazily once the duration has elapsed, evaluated
// on read rather than by a timer. A fresh violation while blocked restarts
// the timer from the latest violation.
//
// The block is a global penalty for the identity: while active it denies
// every operation, regardless of which budget was exceeded.
package block
