/*
Package descriptor defines the capability contract the inspector uses to
describe host objects it knows nothing about.

A Descriptor is a stateless (or session-scoped) strategy bound to one host
type. Many objects share one Descriptor. The inspector never calls methods on
host objects directly; it resolves the object's Descriptor through a registry
and asks it.

Optional capabilities are expressed as small interfaces detected at runtime
(AXChildren, AXDataProvider, Matcher, SessionAware, ...). When a capability is
missing, the helpers in this package fall back to the main-tree behaviour, so
callers should prefer ChildCount(d, obj, axis) and friends over calling the
methods directly.

Embed Base to get neutral defaults and the Invalidate/InvalidateAX push helpers.
*/
package descriptor
