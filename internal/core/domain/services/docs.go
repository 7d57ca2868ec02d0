// Package services holds domain logic that does not belong to a single method
// of the order aggregate.
//
// The package includes:
//   - OrderWorkflow: routes workflow instructions to the aggregate subsystems
//   - EvaluateReviewEligibility: derives whether a participant may review an order
//   - AuthorizeParticipant: the participant check shared by commands and queries
package services
