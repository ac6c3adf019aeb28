package spatial

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxBridgeBinRadius caps the bin radius of bridge proxies.
const MaxBridgeBinRadius = 256

// Bridge attaches a partition expressed in the local frame of a parent
// drawable, such as the parts of a vehicle or an attachment, to an outer
// partition. The outer partition indexes a proxy covering the bridge's
// content in world space; when the proxy is culled visible the bridge culls
// its own partition with the camera moved into the local frame.
type Bridge struct {
	id      uuid.UUID
	session *Session
	parent  Drawable
	inner   *Partition
	outer   *Partition
	proxy   *bridgeProxy
	// model is the parent's world matrix as of the last update.
	model Matrix

	detached bool
	hud      bool
}

// bridgeProxy is the drawable a bridge places in its outer partition.
type bridgeProxy struct {
	bridge   *Bridge
	position Vec3
	extents  Box
	radius   float32
}

func (p *bridgeProxy) ID() uuid.UUID      { return p.bridge.id }
func (p *bridgeProxy) Position() Vec3     { return p.position }
func (p *bridgeProxy) Extents() Box       { return p.extents }
func (p *bridgeProxy) BinRadius() float32 { return p.radius }
func (p *bridgeProxy) Faces() []Face      { return nil }

// NewBridge creates a bridge for parent whose content goes into a new
// partition of the given kind, and whose proxy is indexed by outer.
// Drawables are added with Bridge.Partition().Put in parent's local frame.
func (s *Session) NewBridge(parent Drawable, outer *Partition, kind PartitionKind, opts ...PartitionOption) *Bridge {
	b := &Bridge{
		id:      uuid.New(),
		session: s,
		parent:  parent,
		outer:   outer,
		model:   Identity(),
		hud:     kind == KindHUD,
	}
	b.proxy = &bridgeProxy{bridge: b}
	b.inner = newPartition(s, kind, opts...)
	b.inner.bridge = b
	s.partitions = append(s.partitions, b.inner)
	return b
}

// ID returns the bridge id, which is also the id of its proxy.
func (b *Bridge) ID() uuid.UUID { return b.id }

// Partition returns the bridge's own partition.
func (b *Bridge) Partition() *Partition { return b.inner }

// Outer returns the partition indexing the proxy.
func (b *Bridge) Outer() *Partition { return b.outer }

// Parent returns the drawable the bridge is attached to, or nil once
// detached.
func (b *Bridge) Parent() Drawable { return b.parent }

// Proxy returns the drawable standing for the bridge in the outer partition.
func (b *Bridge) Proxy() Drawable { return b.proxy }

// Detached reports whether CleanupReferences has run.
func (b *Bridge) Detached() bool { return b.detached }

// HUD reports whether the bridge holds HUD content.
func (b *Bridge) HUD() bool { return b.hud }

// WorldMatrix returns the parent's world transform, or the identity when
// the parent carries none.
func (b *Bridge) WorldMatrix() Matrix {
	if t, ok := b.parent.(Transformer); ok {
		return t.WorldMatrix()
	}
	return Identity()
}

// TransformCamera returns cam expressed in the parent's local frame.
func (b *Bridge) TransformCamera(cam Camera) (Camera, error) {
	if b.detached {
		return cam, fmt.Errorf("%w: %s", ErrBridgeDetached, b.id)
	}
	inv, ok := b.WorldMatrix().Invert()
	if !ok {
		return cam, fmt.Errorf("spatial: bridge %s: singular world matrix", b.id)
	}
	return cam.Transformed(inv), nil
}

// UpdateSpatialExtents recomputes the world extents of the bridge's content
// and moves the proxy in the outer partition to match. A bridge with no
// content has no proxy.
func (b *Bridge) UpdateSpatialExtents() {
	if b.detached {
		return
	}
	b.model = b.WorldMatrix()
	b.session.flushBounds()
	local := b.inner.root.group.bounds
	if local.IsEmpty() {
		if b.outer.Contains(b.proxy) {
			b.outer.Remove(b.proxy, nil)
		}
		return
	}
	world := local.Transform(b.WorldMatrix())
	b.proxy.extents = world
	b.proxy.position = world.Center()
	b.UpdateBinRadius()
	if b.outer.Contains(b.proxy) {
		b.outer.Move(b.proxy, nil, false)
		return
	}
	b.outer.Put(b.proxy, true)
}

// UpdateBinRadius sets the proxy's bin radius from its extents, capped at
// MaxBridgeBinRadius.
func (b *Bridge) UpdateBinRadius() {
	b.proxy.radius = min(b.proxy.extents.HalfSize().MaxComponent(), MaxBridgeBinRadius)
}

// Cull culls the bridge's partition with cam moved into the local frame.
func (b *Bridge) Cull(cam Camera, result *CullResult, doOcclusion bool) (int, error) {
	local, err := b.TransformCamera(cam)
	if err != nil {
		return 0, err
	}
	return b.inner.Cull(local, result, doOcclusion), nil
}

// UpdateDistance refreshes distance and LOD of the bridge's groups seen
// this frame, with cam moved into the local frame.
func (b *Bridge) UpdateDistance(cam Camera) error {
	local, err := b.TransformCamera(cam)
	if err != nil {
		return err
	}
	frame := b.session.frame
	b.inner.ForEachGroup(func(g *SpatialGroup) bool {
		if g.visibleFrame == frame && g.Len() > 0 {
			g.UpdateDistance(local)
		}
		return true
	})
	return nil
}

// CleanupReferences detaches the bridge from its parent and outer
// partition, then destroys its partition. While the session's no-delete
// guard is raised destruction waits for EndRender. Calling it again does
// nothing.
func (b *Bridge) CleanupReferences() {
	if b.detached {
		return
	}
	if b.outer.Contains(b.proxy) {
		b.outer.Remove(b.proxy, nil)
	}
	b.detached = true
	b.parent = nil
	if b.session.NoDelete() {
		b.session.deferredBridges = append(b.session.deferredBridges, b)
		return
	}
	b.destroy()
}

func (b *Bridge) destroy() {
	b.inner.Destroy()
}
