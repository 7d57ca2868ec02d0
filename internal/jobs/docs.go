// Package jobs runs the time-driven parts of the order workflow on
// github.com/robfig/cron/v3 schedules.
//
// # Available Jobs
//
// 1. AutoApprovalJob approves DELIVERED orders whose buyer did not answer
// within the grace period.
// 2. NegotiationExpiryJob closes pending negotiations past their TTL.
// 3. OutboxRelayJob publishes committed domain events to the broker.
//
// # Usage
//
//	manager, err := jobs.NewJobManager(jobs.Schedules{
//		AutoApproval:      "0 * * * * *",
//		NegotiationExpiry: "0 * * * * *",
//		OutboxRelay:       "*/5 * * * * *",
//	}, 100, autoApprove, expire, relay, relayCmd, logger)
//	if err != nil {
//		return err
//	}
//	if err := manager.StartAll(ctx); err != nil {
//		return err
//	}
//	defer manager.StopAll()
//
// RunOnce runs each job a single time and is what the tick command uses
// when scheduling is left to an external cron.
//
// # Error Handling
//
// Handlers already skip orders that are not due or were resolved by a
// participant first. A failed pass is logged and retried on the next
// tick; the schedule never stops because of one.
package jobs
