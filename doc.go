// Package spatial is a loose-octree spatial index and visibility culler for
// 3D scenes.
//
// # Overview
//
// A [Session] holds one or more [Partition]s, one per geometry category
// (volumes, terrain, trees, grass, particles, water, bridges, HUD). Each
// partition is a loose octree: a node keeps drawables whose bin radius fits
// its size class, so objects are stored once and never split. Every node
// carries a [SpatialGroup] holding the draw batches ([DrawInfo]) built from
// the node's drawables, grouped by [RenderPass].
//
// Per frame:
//
//	s.BeginFrame(result)
//	s.Update()                 // deferred moves, pruning, bounds
//	s.Cull(cam, result, true)  // frustum + occlusion, fills result
//	s.ProcessBuildQueue()      // rebuild dirty groups
//	s.PostSort(result)         // fill and order render maps
//	s.BeginRender()
//	renderer.Render(result)
//	s.EndRender()
//
// # Bridges
//
// A [Bridge] indexes content in the local frame of a moving parent, such as
// a vehicle. Its proxy sits in an outer partition; when the proxy is visible
// the bridge culls its own partition with the camera moved into the local
// frame.
//
// # Lifetime
//
// Groups are referenced by [GroupHandle]. Vertex buffers and draw batches
// are reference counted. Between BeginRender and EndRender nothing is freed;
// releases are deferred until the guard drops.
//
// # Concurrency
//
// A session and everything attached to it must be used from a single
// goroutine. The logger configured with [SetLogger] is the only shared
// state.
//
// # Debug builds
//
// Building with the spatialdebug tag turns invariant violations into
// panics. Release builds log them once and skip the offending work.
package spatial
