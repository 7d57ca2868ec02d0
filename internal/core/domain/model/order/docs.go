// Package order provides the Order aggregate of the marketplace workflow:
// the order state machine together with its delivery and negotiation
// sub-protocols.
//
// The package includes:
//   - Order: the aggregate root, mutated only through its workflow methods
//   - Status and Action: the lifecycle states and the transition table
//   - Delivery: seller submissions and the buyer's tri-state Approval
//   - Negotiation: counterparty-approved proposals with a closed Payload union
//   - DomainEvent: facts raised by mutations and relayed through the outbox
//
// Key business rules:
//   - PENDING -> ACTIVE -> IN_PROGRESS -> DELIVERED -> COMPLETED is the happy path
//   - only one negotiation may be pending; CANCEL_ORDER parks the order in CANCEL_PENDING
//   - rejected or expired negotiations restore the status snapshotted when they opened
//   - deadlines (auto-approval, negotiation expiry) are persisted timestamps
//   - COMPLETED and CANCELLED are terminal; DISPUTED has no internal way out
//
// Methods validate everything before they change anything, so a returned
// error always leaves the aggregate as it was.
package order
