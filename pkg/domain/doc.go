/*
Package domain contains the wire-level data model of the inspector protocol.

It defines the projections a remote controller sees (Node, SearchResultNode),
the ordered property containers descriptors fill in (Groups, Props, Value),
the request/response shapes of every command, and the sentinel errors shared
by the runtime, the session and the adapters. The package is pure: no I/O,
no host object references.

# Key Entities

  - Node: the snapshot of one tracked object on one Axis (main or AX).
  - Groups / Props: insertion-ordered maps that marshal to JSON objects.
  - Value: a typed, optionally editable property value.
  - SearchResultNode: the pruned tree returned by a search.
*/
package domain
