/*
Package ports defines the external collaborators of an inspector session.

The session core never speaks a wire protocol, renders an overlay or talks to
a network service itself. Adapters implement these interfaces.

# Key Interfaces

  - Connection: the command/push channel to one remote controller.
  - Overlay: the host surface that intercepts taps while search mode is on.
  - DistributedLocker: grants a single controller lease per inspected host.
  - EventPublisher: mirrors push events to other processes.
  - SnapshotArchive: stores tree dumps for later comparison.

Reusable contract suites (RunConnectionContract, RunLockerContract,
RunArchiveContract) let every adapter prove it honours the same behaviour.
*/
package ports
