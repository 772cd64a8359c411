// Package models defines the core domain models for the settlement engine.
//
// # Models
//
//   - User: registered account with a display nickname and payment key
//   - Group: a spending group whose members share expenses
//   - Expense: one spending event, split evenly or per item
//   - ExpenseItem: one priced line of an itemized expense
//   - Allocation: one directed sender-to-receiver money obligation
//   - KakaoToken: stored external messaging credential
//
// All money amounts are integers in minor currency units (won). Floating
// point is never used for money.
//
// # Design Principles
//
//  1. **Avoid circular references**: models hold ID strings for relationships,
//     never pointers back into other entities. Joins happen in storage.
//  2. **Status is the only mutable field**: an Allocation never changes after
//     creation except for Status, which only the settlement service advances.
//  3. **Minor units only**: amounts are int64 won; display formatting lives in
//     the money package.
package models
