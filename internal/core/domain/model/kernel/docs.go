// Package kernel provides the shared value objects of the order workflow
// domain.
//
// The package includes:
//   - UUID: identifier of orders, participants, negotiations and deliveries
//   - Money: an amount in minor currency units bound to an ISO 4217 code
//
// Both are immutable values; their zero values fail validation and must be
// created through the provided constructors.
package kernel
