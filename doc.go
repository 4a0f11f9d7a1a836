/*
Package inspector lets a remote controller browse and edit a live, host-defined
object graph without the host objects knowing they are being inspected.

# Concept

The host registers a Descriptor per runtime type. Descriptors know how to
enumerate children, render properties, apply edits and hit test a touch. The
inspector assigns every visited object a stable id for as long as it stays
reachable, and answers controller commands (getRoot, getNodes, setData,
hitTest, getSearchResults, ...) with fresh Node snapshots. Two projections
of the graph are served: the main tree and the accessibility tree.

All descriptor calls run on a single owner goroutine (the host's UI thread,
or a loop started by the Inspector), so host objects need no locking.

# Usage

	ins, err := inspector.New(window,
		inspector.WithDescriptor[*Window](&WindowDescriptor{}),
		inspector.WithDescriptor[*Button](&ButtonDescriptor{}),
		inspector.WithOverlay(window),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer ins.Close(context.Background())

	// Attach a controller over any ports.Connection, for example the
	// websocket adapter in pkg/adapters/websocket.
	sess, err := ins.Attach(ctx, conn)

Commands can also be issued without a connection through Session().Call,
which is what the HTTP RPC and MCP adapters do.
*/
package inspector
