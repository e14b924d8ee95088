// Package async runs background work with panic recovery and timeouts.
//
// Group is for fire-and-forget tasks that must not outlive shutdown, such as
// mirroring a finished build to object storage. Batch fans a slice out over a
// fixed number of workers and collects the errors.
package async
