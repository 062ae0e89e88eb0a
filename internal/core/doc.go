// Package core is the process-wide registry anchor.
//
// A Core owns the local identity (a Config produced by Bootstrap), the table
// of locally known repositories with one marked default, and the routing of
// repository message hooks. Outbound messages go to local repositories by
// target id and to a Transport for everything else. Inbound traffic arriving
// on other goroutines is posted to the Inbox and delivered by Run on the
// registry's goroutine.
//
// Apart from Inbox.Post and Core.Close, Core methods must be called from a
// single goroutine, the same one that drives the repositories it holds.
package core
