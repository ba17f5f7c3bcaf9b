// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability. Production
// code injects Real(); tests inject Fake() with deterministic time
// control.
//
// The generator's inter-epoch throttle and every timestamp written to
// disk go through a Clock, so tests never wait on the wall clock: a
// goroutine calls Sleep, the test calls [FakeClock.WaitForTimers] to
// observe the pending sleep, then [FakeClock.Advance] to fire it.
package clock
