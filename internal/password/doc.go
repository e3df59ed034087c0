// Package password enforces password strength rules and produces/verifies
// bcrypt digests.
//
// Policy and Hasher are immutable after construction and safe for concurrent
// use. Both are CPU-bound but perform no I/O.
package password
