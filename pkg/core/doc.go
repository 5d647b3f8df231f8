// Package core implements the tickrun cooperative task scheduler.
//
// A Task wraps a resumable computation (see package step) in a controllable
// handle: Start makes it eligible for stepping, Pause/Resume suspend and
// lift stepping without ending it, Stop forces a finish, and OnFinished fans
// the one-shot finish event out to any number of subscribers. A Pool groups
// tasks so they start together and raises a single all-finished notification
// once every member has finished.
//
// Tasks never run concurrently with each other inside this layer. A Driver
// resumes at most one step of one task at a time; ManualDriver gives the
// host explicit control over ticks, TickerDriver runs them off a timer on a
// single goroutine. Stop and Pause are synchronous flag flips observed at
// the next tick boundary, never mid-step.
package core
