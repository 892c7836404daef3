// Package budget enforces token and cost budgets per (user, session)
// pair over three windows: the single request, the session, and the
// UTC calendar day.
//
// PreCheck projects a pending call onto the current counters before it
// runs; Record accounts actual usage afterward. Daily counters reset
// lazily on the first access of a new day, and idle trackers are
// garbage collected by a cron sweep.
package budget
