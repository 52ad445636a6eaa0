package main

import (
	"fmt"
	"os"

	"github.com/siohaza/corridor/pkg/config"
	"github.com/siohaza/corridor/pkg/mapgen"

	"github.com/spf13/cobra"
)

var (
	side      int
	seed      uint64
	firstID   uint32
	count     int
	outputDir string
	corners   bool
	preview   bool
)

var rootCmd = &cobra.Command{
	Use:   "mapgen",
	Short: "generate corridor maze maps as premade toml files",
	Run:   runGenerate,
}

func init() {
	rootCmd.Flags().IntVarP(&side, "side", "s", mapgen.DefaultSide, "map side length in tiles")
	rootCmd.Flags().Uint64Var(&seed, "seed", 1, "seed of the first map; later maps use seed+n")
	rootCmd.Flags().Uint32Var(&firstID, "id", 1, "premade id of the first map")
	rootCmd.Flags().IntVarP(&count, "count", "n", 1, "number of maps to generate")
	rootCmd.Flags().StringVarP(&outputDir, "out", "o", "maps", "output directory for TOML files")
	rootCmd.Flags().BoolVar(&corners, "corners", false, "let corridors meet diagonally")
	rootCmd.Flags().BoolVarP(&preview, "preview", "p", false, "print each map to stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) {
	if firstID == 0 {
		fmt.Fprintln(os.Stderr, "Map ids start at 1")
		os.Exit(1)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	written := 0
	failed := 0

	for n := 0; n < count; n++ {
		id := firstID + uint32(n)
		name := fmt.Sprintf("maze %d", id)

		m, err := mapgen.Generate(name, mapgen.Options{
			Side:           side,
			Seed:           seed + uint64(n),
			IncludeCorners: corners,
		})
		if err != nil {
			fmt.Printf("FAIL map%d: %v\n", id, err)
			failed++
			continue
		}

		path := config.MapPath(outputDir, id)
		if err := config.WriteMapFile(path, m); err != nil {
			fmt.Printf("FAIL map%d: %v\n", id, err)
			failed++
			continue
		}

		fmt.Printf("OK   map%d -> %s (%d open tiles)\n", id, path, m.OpenTiles())
		if preview {
			fmt.Println(m)
		}
		written++
	}

	fmt.Printf("\nSummary: %d written, %d failed\n", written, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
