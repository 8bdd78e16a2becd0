// Package availability computes meeting slots where every participant is free.
//
// The Service validates a Request, loads each participant's calendar
// connections from the store, and hands them to the Aggregator, which pulls
// busy intervals from every selected calendar concurrently and merges them.
// Resolve then walks a 15 minute grid over the window and keeps the slots
// that avoid every connected participant's busy set and fall inside local
// business hours.
//
// A failing calendar never fails the request. It degrades to an empty busy
// set and is counted in the participant's FailedSources. Only invalid input
// (ValidationError) and store outages (ErrUnavailable) are fatal.
//
// Participants without any calendar connection are treated as always free.
package availability
