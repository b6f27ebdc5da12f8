package main

import (
	"context"
	"fmt"
	"time"

	"github.com/philipparndt/arstudio/internal/loader"
	"github.com/philipparndt/arstudio/pkg/analysis"
	"github.com/spf13/cobra"
)

var (
	infoTimeout time.Duration
	infoEdges   int
)

var infoCmd = &cobra.Command{
	Use:   "info [model]",
	Short: "Display information about a model",
	Long:  "Load a model file or URL and show its kind, parts, triangle count, dimensions and animation clips.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().DurationVar(&infoTimeout, "timeout", time.Minute, "load timeout")
	infoCmd.Flags().IntVarP(&infoEdges, "edges", "e", 0, "number of longest edges to list")
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), infoTimeout)
	defer cancel()

	res := loader.New(nil, nil).Load(ctx, args[0])
	if res.Err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], res.Err)
	}
	asset := res.Asset
	result := analysis.AnalyzeNode(asset.Node)

	fmt.Println("Model Information")
	fmt.Println("=================")
	fmt.Printf("Name: %s\n", asset.Name)
	fmt.Printf("Source: %s\n", res.Ref)
	fmt.Printf("Format: %s\n", res.Format)
	fmt.Printf("Kind: %s\n\n", asset.Kind)

	fmt.Println("Statistics:")
	fmt.Printf("  Parts: %d\n", result.PartCount)
	fmt.Printf("  Triangles: %d\n", result.TriangleCount)
	fmt.Printf("  Materials: %d\n", result.MaterialCount)
	if result.Placeholder {
		fmt.Println("  Placeholder material: yes (material library missing)")
	}
	fmt.Printf("  Surface Area: %s\n\n", analysis.FormatMeasurement(result.SurfaceArea, "square units"))

	fmt.Println("Bounding Box:")
	fmt.Printf("  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Printf("  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Printf("  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

	fmt.Println("Dimensions:")
	fmt.Printf("  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Printf("  Height (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Printf("  Depth (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Printf("  Diagonal: %.6f units\n", result.BoundingBox.Diagonal())

	if result.EdgeCount > 0 {
		fmt.Println("\nEdge Lengths:")
		fmt.Printf("  Minimum: %.6f units\n", result.MinEdgeLength)
		fmt.Printf("  Maximum: %.6f units\n", result.MaxEdgeLength)
		fmt.Printf("  Average: %.6f units\n", result.AvgEdgeLength)
	}

	if infoEdges > 0 {
		edges := analysis.FindLongestEdges(result, infoEdges)
		fmt.Printf("\nTop %d Longest Edges:\n", len(edges))
		fmt.Printf("  %-6s %-35s %-35s %-15s\n", "Index", "Start", "End", "Length")
		for i, edge := range edges {
			fmt.Printf("  %-6d %-35s %-35s %.6f\n", i+1,
				analysis.FormatVector(edge.Start), analysis.FormatVector(edge.End), edge.Length)
		}
	}

	if len(asset.Clips) > 0 {
		fmt.Println("\nAnimation Clips:")
		for i, clip := range asset.Clips {
			marker := ""
			if i == 0 {
				marker = " (plays)"
			}
			fmt.Printf("  %s: %.2fs, %d tracks%s\n", clip.Name, clip.Duration, len(clip.Tracks), marker)
		}
	}
	return nil
}
