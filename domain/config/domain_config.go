// Package config holds domain-level tuning knobs shared by the editor state
// and the history manager.
package config

// DomainConfig collects the business rules that are constants of the product
// rather than deployment concerns.
type DomainConfig struct {
	// History
	HistoryLimit int

	// Connection rules
	AllowSelfConnections bool
	AllowParallelEdges   bool

	// Canvas bounds for randomized node placement.
	CanvasWidth  float64
	CanvasHeight float64

	// Grid layout geometry.
	GridColumns  int
	GridSpacingX float64
	GridSpacingY float64
	GridOriginX  float64
	GridOriginY  float64

	// Node color palette, assigned round-robin.
	Palette []string

	// Safety bounds.
	MaxNodesPerMap int
	MaxEdgesPerMap int
}

// DefaultDomainConfig returns the product defaults.
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		HistoryLimit:         20,
		AllowSelfConnections: false,
		AllowParallelEdges:   true,
		CanvasWidth:          1200,
		CanvasHeight:         800,
		GridColumns:          4,
		GridSpacingX:         250,
		GridSpacingY:         150,
		GridOriginX:          100,
		GridOriginY:          100,
		Palette: []string{
			"#3b82f6", // blue
			"#ef4444", // red
			"#10b981", // green
			"#f59e0b", // amber
			"#8b5cf6", // violet
			"#ec4899", // pink
		},
		MaxNodesPerMap: 10000,
		MaxEdgesPerMap: 50000,
	}
}
