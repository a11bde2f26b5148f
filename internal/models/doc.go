// Package models defines the core domain records for TripTab.
//
// # Record sets
//
//   - Trip / TripMember: a trip groups the people splitting expenses
//   - Bill / BillShare: a recorded group expense and each debtor's portion
//   - Payment / PaymentProof: two partially redundant records of a debtor
//     attempting to settle a share (see internal/ledger for how they are
//     reconciled into a single event set)
//   - DebtSummary: a denormalized running total per (debtor, creditor, trip)
//     pair, updated opportunistically on approval; allowed to be stale or
//     absent and never authoritative alone
//   - User, Friendship, FriendRequest, Notification: social plumbing
//
// # Design principles
//
//  1. IDs are opaque strings (UUID format), assigned by the storage layer
//  2. Timestamps are Unix seconds
//  3. Relationships use ID strings, never pointers, to avoid cycles
//  4. Statuses are typed string constants so a bad value is visible in logs
//     and in the database rather than hidden behind an int
package models
