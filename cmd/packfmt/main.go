package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/d1nch8g/packbridge/pack"
	"github.com/d1nch8g/packbridge/version"
)

func stampPackFormat(path string, format int) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, pack.McmetaFile)
	}

	tree := pack.NewTree()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	tree.Put(pack.McmetaFile, data)

	before, _ := pack.PackFormat(tree)
	if err := pack.SetPackFormat(tree, format); err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}

	updated, _ := tree.Get(pack.McmetaFile)
	if err := os.WriteFile(path, updated, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Printf("✓ %s: pack_format %d -> %d\n", path, before, format)
	return nil
}

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: packfmt <target_version> <pack_path> [pack_path2] ...")
		fmt.Printf("Example: packfmt 1.21.4 ./mypack ./otherpack/pack.mcmeta\n")
		fmt.Printf("Supported versions: %v\n", version.IDs())
		os.Exit(1)
	}

	v, err := version.Lookup(os.Args[1])
	if err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Stamping pack_format %d for %s...\n", v.PackFormat, v.ID)

	for _, path := range os.Args[2:] {
		if err := stampPackFormat(path, v.PackFormat); err != nil {
			log.Printf("Error updating %s: %v", path, err)
			os.Exit(1)
		}
	}

	fmt.Println("✓ All packs stamped successfully")
}
