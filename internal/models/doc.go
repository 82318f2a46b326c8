// Package models defines the core domain models for the Splitwiser client.
//
// # Money
//
// All amounts are carried as Money, a signed count of cents. Values coming
// off the wire (numbers or numeric strings) are rounded to the cent once, at
// decode time, and every later computation is integer arithmetic.
//
// # Models
//
//   - Group, Member, GroupIcon: a group as returned by GET /groups
//   - Expense, Split: one shared expense and the per-member owed amounts
//   - Settlement: a server-computed transfer (consumed, never produced)
//   - FriendBalance, GroupBalance: per-counterparty balance view
//   - GroupDetails: a group together with its fetched members and expenses
//   - User, TokenPair: session data returned by the auth endpoints
//
// # Design Principles
//
// 1. **Typed at the boundary**: loosely shaped API responses are normalized by
// the client package before they reach these types.
// 2. **Absence is explicit**: a nil Splits or Expenses slice means the data was
// not available, which is different from an empty list.
// 3. **IDs, not pointers**: relationships are expressed by user and group IDs.
package models
