/*
Package session implements the inspector command surface for one remote
controller, and the manager that admits controllers.

A Session owns the object tracker of its connection, the currently
highlighted id and the search-overlay flag. Every command is marshaled onto
the owner Executor before any host object is touched, and answered
asynchronously when that work completes. Descriptor pushes (invalidate) raised
while a command runs are coalesced into one event per axis.

The Manager admits connections, optionally behind a DistributedLocker lease
so that only one controller drives a given host across replicas.
*/
package session
