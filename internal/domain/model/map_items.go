package model

// MapItemKind tags the point-or-cluster union returned to the map client.
type MapItemKind string

const (
	ItemPoint   MapItemKind = "point"
	ItemCluster MapItemKind = "cluster"
)

// Cluster is a derived aggregate marker for nearby points at low zoom.
// Clusters are recomputed per query and never cached across zoom levels.
type Cluster struct {
	Centroid LatLng   `json:"centroid"`
	Count    int      `json:"count"`
	Members  []Toilet `json:"members,omitempty"`
}

// MapItem is either a standalone Toilet or a Cluster, discriminated by Kind.
type MapItem struct {
	Kind    MapItemKind `json:"kind"`
	Point   *Toilet     `json:"point,omitempty"`
	Cluster *Cluster    `json:"cluster,omitempty"`
}

// NewPointItem wraps a standalone record.
func NewPointItem(t Toilet) MapItem {
	return MapItem{Kind: ItemPoint, Point: &t}
}

// NewClusterItem wraps an aggregate marker.
func NewClusterItem(c Cluster) MapItem {
	return MapItem{Kind: ItemCluster, Cluster: &c}
}

// ResultSource records where a region result came from.
type ResultSource string

const (
	// SourceFresh means the records were fetched from the store on this call.
	SourceFresh ResultSource = "fresh"
	// SourceCache means the records were served from a fresh cache entry.
	SourceCache ResultSource = "cache"
	// SourceStale means the records were served from an expired entry because
	// the store was unreachable or throttled.
	SourceStale ResultSource = "stale"
)

// RegionResult is the uniform answer of the map usecase: the caller branches
// on Source rather than catching errors, and an empty Items slice is a valid
// successful outcome.
type RegionResult struct {
	Items  []MapItem    `json:"items"`
	Source ResultSource `json:"source"`
	Zoom   int          `json:"zoom"`
}
