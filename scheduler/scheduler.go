package scheduler

// Package scheduler provides the scheduled trigger for the price monitor.
// It fires the check cycle on a fixed interval and once shortly after
// process start when the market is already open, so a cold start does not
// wait a full interval before the first check.
//
// The trigger itself is implemented in jobs.go
