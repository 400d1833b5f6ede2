// Package models defines the core domain models for Subsplit.
//
// # Models
//
//   - Subscription: a recurring shared cost owned by one user
//   - Contributor: one member's participation in a subscription's cost
//   - User: a registered account; owners and contributors reference users
//   - Invite: a joinable token that lets a user become a contributor
//
// # Design Principles
//
//  1. **Authoritative totals**: a subscription's TotalAmount is the source of
//     truth; contributor allocations must reconcile against it.
//  2. **Derived amounts are stored, not re-derived**: CalculatedAmount is
//     persisted so reloading a subscription never drifts from what was saved.
//  3. **Avoid circular references**: relationships use ID strings rather than
//     pointers.
//  4. **Nullable means pointer**: strategy-specific raw inputs are absent
//     until a member supplies one; lifecycle timestamps are zero until the
//     corresponding transition happens.
package models
