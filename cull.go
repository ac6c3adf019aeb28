package spatial

// culler carries the per-call state of a partition cull.
type culler struct {
	p       *Partition
	cam     Camera
	frustum Frustum
	result  *CullResult
	oracle  OcclusionOracle
}

// Cull walks the tree against cam's frustum and fills result. Subtrees
// fully inside the frustum skip further plane tests. With doOcclusion set,
// groups the session's occlusion oracle reports as occluded are skipped
// with their subtrees and queued for a new query; groups that were occluded
// and no longer are get queued and drawn. It returns the number of nodes
// visited.
func (p *Partition) Cull(cam Camera, result *CullResult, doOcclusion bool) int {
	p.session.flushBounds()
	c := culler{p: p, cam: cam, frustum: cam.Frustum(), result: result}
	if doOcclusion {
		c.oracle = p.session.opts.occlusion
	}
	n := c.visit(p.root, false)
	p.session.Metrics().traversed(p.kind, n)
	return n
}

func (c *culler) visit(n *octreeNode, inside bool) int {
	g := n.group
	count := 1
	if g.bounds.IsEmpty() {
		return count
	}
	ignoreFar := c.p.opts.infiniteFarClip
	if !inside {
		switch c.frustum.ClassifyBox(g.bounds, ignoreFar) {
		case Outside:
			g.clearState(StateSkipFrustumCheck)
			return count
		case Inside:
			inside = true
		}
	}
	if inside {
		g.setState(StateSkipFrustumCheck)
	} else {
		g.clearState(StateSkipFrustumCheck)
	}

	if c.oracle != nil {
		switch {
		case c.oracle.Occluded(g.handle):
			g.setState(StateOccluded)
			c.result.PushOcclusionGroup(g)
			return count
		case g.state.Any(StateOccluded):
			g.clearState(StateOccluded)
			c.result.PushOcclusionGroup(g)
		}
	}

	if len(n.data) > 0 && (inside || c.frustum.ClassifyBox(g.objectBounds, ignoreFar) != Outside) {
		c.visible(g)
	}
	for _, child := range n.children {
		count += c.visit(child, inside)
	}
	return count
}

func (c *culler) visible(g *SpatialGroup) {
	s := c.p.session
	g.visibleFrame = s.frame
	c.result.PushVisibleGroup(g)
	g.UpdateDistance(c.cam)
	if g.HasAlpha() {
		c.result.PushAlphaGroup(g)
	}
	if !c.p.opts.renderByGroup {
		c.result.PushDrawableGroup(g)
		for _, d := range g.node.data {
			c.result.PushVisibleDrawable(d)
		}
	}
	// Bridges are culled whatever the outer partition's render mode.
	for _, d := range g.node.data {
		if proxy, ok := d.(*bridgeProxy); ok && !proxy.bridge.detached {
			c.result.PushBridge(proxy.bridge)
		}
	}
	if g.state.Any(StateDrawMapDirty) {
		s.queueBuild(g)
	}
}

// VisibleExtents returns the union of the object bounds of every group
// inside cam's frustum. Group state is not modified.
func (p *Partition) VisibleExtents(cam Camera) Box {
	p.session.flushBounds()
	fr := cam.Frustum()
	ignoreFar := p.opts.infiniteFarClip
	ext := EmptyBox()
	var visit func(n *octreeNode, inside bool)
	visit = func(n *octreeNode, inside bool) {
		g := n.group
		if g.bounds.IsEmpty() {
			return
		}
		if !inside {
			switch fr.ClassifyBox(g.bounds, ignoreFar) {
			case Outside:
				return
			case Inside:
				inside = true
			}
		}
		if !g.objectBounds.IsEmpty() && (inside || fr.ClassifyBox(g.objectBounds, ignoreFar) != Outside) {
			ext = ext.Union(g.objectBounds)
		}
		for _, child := range n.children {
			visit(child, inside)
		}
	}
	visit(p.root, false)
	return ext
}
