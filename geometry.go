package spatial

// GeometryManager converts the faces of a group's drawables into vertex
// buffers and draw batches. Each partition kind has its own manager.
type GeometryManager interface {
	// RebuildGeom replaces the group's buffers and draw map.
	RebuildGeom(g *SpatialGroup)
	// RebuildMesh rewrites vertex positions and normals in place. If a face
	// changed shape since the last build the group is marked GEOM_DIRTY.
	RebuildMesh(g *SpatialGroup)
	// GetGeometry rewrites every vertex attribute of the built faces in place.
	GetGeometry(g *SpatialGroup)
	// AddGeometryCount returns the vertices and indices a rebuild of the
	// group would produce.
	AddGeometryCount(g *SpatialGroup) (vertices, indices int)
}

// faceGeometry implements the in-place parts shared by face-based managers.
type faceGeometry struct{}

func (faceGeometry) RebuildMesh(g *SpatialGroup) { rewriteFaces(g, meshAttributes) }

func (faceGeometry) GetGeometry(g *SpatialGroup) { rewriteFaces(g, allAttributes) }

func (faceGeometry) AddGeometryCount(g *SpatialGroup) (vertices, indices int) {
	for _, d := range g.Objects() {
		faces := facesAt(d, g.lod)
		for i := range faces {
			if faceUsable(&faces[i]) == nil {
				vertices += len(faces[i].Vertices)
				indices += len(faces[i].Indices)
			}
		}
	}
	return vertices, indices
}

// VolumeGeometry builds prims, sorting faces into the opaque, shiny, bump,
// material and alpha passes.
type VolumeGeometry struct{ faceGeometry }

func (*VolumeGeometry) RebuildGeom(g *SpatialGroup) { buildDrawMap(g, classifyVolume) }

func classifyVolume(f *Face) RenderPass {
	switch {
	case f.Alpha:
		return PassAlpha
	case f.Material != nil && (f.Material.DiffuseAlphaMode == AlphaModeMask || f.Material.AlphaCutoff > 0):
		return PassAlphaMask
	case f.Material != nil && (f.Material.SpecularMap.IsValid() || f.Material.NormalMap.IsValid()):
		return PassMaterial
	case f.Bump > 0:
		return PassBump
	case f.Shiny && f.Fullbright:
		return PassFullbrightShiny
	case f.Shiny:
		return PassShiny
	case f.Fullbright:
		return PassFullbright
	case f.Invisible:
		return PassInvisible
	}
	return PassSimple
}

// TerrainGeometry builds terrain patches into the terrain pass.
type TerrainGeometry struct{ faceGeometry }

func (*TerrainGeometry) RebuildGeom(g *SpatialGroup) {
	buildDrawMap(g, func(*Face) RenderPass { return PassTerrain })
}

// TreeGeometry builds tree impostors and meshes into the tree pass.
type TreeGeometry struct{ faceGeometry }

func (*TreeGeometry) RebuildGeom(g *SpatialGroup) {
	buildDrawMap(g, func(*Face) RenderPass { return PassTree })
}

// GrassGeometry builds grass blades into the grass pass.
type GrassGeometry struct{ faceGeometry }

func (*GrassGeometry) RebuildGeom(g *SpatialGroup) {
	buildDrawMap(g, func(*Face) RenderPass { return PassGrass })
}

// ParticleGeometry builds particle quads into the particle pass, sorted
// back to front.
type ParticleGeometry struct{ faceGeometry }

func (*ParticleGeometry) RebuildGeom(g *SpatialGroup) {
	buildDrawMap(g, func(*Face) RenderPass { return PassParticles })
}

// WaterGeometry builds water surfaces into the water pass.
type WaterGeometry struct{ faceGeometry }

func (*WaterGeometry) RebuildGeom(g *SpatialGroup) {
	buildDrawMap(g, func(*Face) RenderPass { return PassWater })
}

// BridgeGeometry is the manager of bridge proxy partitions. Proxies have no
// faces of their own; their content is culled through the bridge.
type BridgeGeometry struct{}

func (*BridgeGeometry) RebuildGeom(g *SpatialGroup) { g.clearDrawMap() }

func (*BridgeGeometry) RebuildMesh(*SpatialGroup) {}

func (*BridgeGeometry) GetGeometry(*SpatialGroup) {}

func (*BridgeGeometry) AddGeometryCount(*SpatialGroup) (vertices, indices int) { return 0, 0 }
