package service

import (
	"fmt"
	"sort"

	"toaletna-api/internal/domain/geo"
	"toaletna-api/internal/domain/model"
)

// ClusterConfig holds the clustering tunables.
type ClusterConfig struct {
	// GridSizePx is the screen-space bucket size at the query zoom.
	GridSizePx float64
	// MinClusterSize is the member count below which a cell stays standalone.
	MinClusterSize int
	// MaxClusterZoom is the last zoom level that clusters; street-level
	// views above it always show individual points.
	MaxClusterZoom int
	// LargeClusterSize is the member count from which compactness is checked.
	LargeClusterSize int
	// CompactnessLimitMeters is the maximum pairwise member distance allowed
	// in a large cluster before its cell is subdivided.
	CompactnessLimitMeters float64
}

// DefaultClusterConfig returns the production tunables.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		GridSizePx:             64,
		MinClusterSize:         3,
		MaxClusterZoom:         14,
		LargeClusterSize:       10,
		CompactnessLimitMeters: 200000, // a cluster marker must not span half the country
	}
}

func (c ClusterConfig) withDefaults() ClusterConfig {
	d := DefaultClusterConfig()
	if c.GridSizePx <= 0 {
		c.GridSizePx = d.GridSizePx
	}
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = d.MinClusterSize
	}
	if c.MaxClusterZoom <= 0 {
		c.MaxClusterZoom = d.MaxClusterZoom
	}
	if c.LargeClusterSize <= 0 {
		c.LargeClusterSize = d.LargeClusterSize
	}
	if c.CompactnessLimitMeters <= 0 {
		c.CompactnessLimitMeters = d.CompactnessLimitMeters
	}
	return c
}

// Clusterer merges nearby points into weighted centroids at low zoom.
// Clusters are derived per query; membership depends on zoom, so nothing
// here is cached.
type Clusterer struct {
	cfg ClusterConfig
}

// NewClusterer constructs a Clusterer.
func NewClusterer(cfg ClusterConfig) *Clusterer {
	return &Clusterer{cfg: cfg.withDefaults()}
}

// Cluster buckets the records into screen-space grid cells at the given zoom
// and turns dense cells into clusters. Deterministic for a fixed input set
// and zoom. Above MaxClusterZoom every record is returned standalone.
func (c *Clusterer) Cluster(toilets []model.Toilet, zoom int) []model.MapItem {
	if zoom > c.cfg.MaxClusterZoom {
		items := make([]model.MapItem, 0, len(toilets))
		for _, t := range toilets {
			items = append(items, model.NewPointItem(t))
		}
		return items
	}
	return c.bucketize(toilets, zoom, c.cfg.GridSizePx)
}

// bucketize assigns points to gridPx-sized cells and forms clusters from
// cells that are dense enough. Large cells failing the compactness check are
// recursively re-bucketed at half the cell size, so one marker never stands
// for points hundreds of kilometers apart.
func (c *Clusterer) bucketize(toilets []model.Toilet, zoom int, gridPx float64) []model.MapItem {
	cells := make(map[string][]model.Toilet)
	for _, t := range toilets {
		x, y := geo.ProjectToPixels(t.ToLatLng(), zoom)
		key := fmt.Sprintf("%d:%d", int(x/gridPx), int(y/gridPx))
		cells[key] = append(cells[key], t)
	}

	keys := make([]string, 0, len(cells))
	for key := range cells {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var items []model.MapItem
	for _, key := range keys {
		members := cells[key]
		if len(members) < c.cfg.MinClusterSize {
			for _, t := range members {
				items = append(items, model.NewPointItem(t))
			}
			continue
		}

		if len(members) >= c.cfg.LargeClusterSize && !c.isCompact(members) {
			if gridPx/2 >= 1 {
				items = append(items, c.bucketize(members, zoom, gridPx/2)...)
				continue
			}
			// Cannot subdivide further: never emit a cluster that violates
			// the compactness limit.
			for _, t := range members {
				items = append(items, model.NewPointItem(t))
			}
			continue
		}

		items = append(items, model.NewClusterItem(makeCluster(members)))
	}
	return items
}

// isCompact checks the maximum pairwise member distance against the limit.
func (c *Clusterer) isCompact(members []model.Toilet) bool {
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if geo.HaversineMeters(members[i].ToLatLng(), members[j].ToLatLng()) > c.cfg.CompactnessLimitMeters {
				return false
			}
		}
	}
	return true
}

// makeCluster builds the aggregate marker: centroid is the arithmetic mean
// of member coordinates.
func makeCluster(members []model.Toilet) model.Cluster {
	var sumLat, sumLng float64
	for _, t := range members {
		pos := t.ToLatLng()
		sumLat += pos.Lat
		sumLng += pos.Lng
	}
	n := float64(len(members))
	return model.Cluster{
		Centroid: model.LatLng{Lat: sumLat / n, Lng: sumLng / n},
		Count:    len(members),
		Members:  members,
	}
}
