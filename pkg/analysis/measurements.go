package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
)

// EdgeInfo contains information about an edge in the model
type EdgeInfo struct {
	Start      geometry.Vector3
	End        geometry.Vector3
	Length     float64
	TriangleID int
}

// MeasurementResult contains various measurements of a scene node
type MeasurementResult struct {
	BoundingBox   geometry.BoundingBox
	Dimensions    geometry.Vector3
	Volume        float64
	SurfaceArea   float64
	PartCount     int
	TriangleCount int
	MaterialCount int
	Placeholder   bool
	EdgeCount     int
	MinEdgeLength float64
	MaxEdgeLength float64
	AvgEdgeLength float64
	AllEdges      []EdgeInfo
}

// AnalyzeNode measures every mesh below node in world space
func AnalyzeNode(node *scene.Node) *MeasurementResult {
	result := &MeasurementResult{
		BoundingBox: node.Bounds(),
		AllEdges:    make([]EdgeInfo, 0),
	}

	result.Dimensions = result.BoundingBox.Size()
	result.Volume = result.BoundingBox.Volume()

	for _, mat := range node.Materials() {
		result.MaterialCount++
		if mat.Placeholder {
			result.Placeholder = true
		}
	}

	// Collect all edges
	minLength := math.MaxFloat64
	maxLength := 0.0
	totalLength := 0.0
	triangleID := 0

	node.Walk(func(n *scene.Node) bool {
		if n.Mesh == nil || n.Mesh.Released() {
			return true
		}
		result.PartCount++
		world := n.WorldMatrix()

		for i := 0; i < n.Mesh.TriangleCount(); i++ {
			triangle := n.Mesh.Triangle(i, world)
			result.SurfaceArea += triangle.Area()

			edges := []struct {
				start, end geometry.Vector3
			}{
				{triangle.V1, triangle.V2},
				{triangle.V2, triangle.V3},
				{triangle.V3, triangle.V1},
			}

			for _, edge := range edges {
				length := edge.start.Distance(edge.end)
				result.AllEdges = append(result.AllEdges, EdgeInfo{
					Start:      edge.start,
					End:        edge.end,
					Length:     length,
					TriangleID: triangleID,
				})

				totalLength += length
				if length < minLength {
					minLength = length
				}
				if length > maxLength {
					maxLength = length
				}
			}
			triangleID++
		}
		return true
	})

	result.TriangleCount = triangleID
	result.EdgeCount = len(result.AllEdges)
	if result.EdgeCount > 0 {
		result.MinEdgeLength = minLength
		result.MaxEdgeLength = maxLength
		result.AvgEdgeLength = totalLength / float64(result.EdgeCount)
	}

	return result
}

// FindLongestEdges returns the N longest edges in the model
func FindLongestEdges(result *MeasurementResult, count int) []EdgeInfo {
	edges := make([]EdgeInfo, len(result.AllEdges))
	copy(edges, result.AllEdges)

	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Length > edges[j].Length
	})

	if count > len(edges) {
		count = len(edges)
	}

	return edges[:count]
}

// FormatMeasurement formats a measurement with appropriate units
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.6f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
