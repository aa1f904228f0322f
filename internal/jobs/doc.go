// Package jobs implements background jobs that run independently of HTTP
// request handling.
//
//   - LockSweeper: purges expired draft locks
//   - EventStatusProcessor: starts and completes published events on schedule
//
// Each job has Start/Stop for the server lifecycle and RunOnce for tests or
// a manual trigger. Jobs log failures and keep running.
package jobs
