package organize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// auxiliaryPrefixes name artwork that belongs to whatever video shares its folder.
var auxiliaryPrefixes = []string{"fanart", "poster"}

// Move is one source/destination pair.
type Move struct {
	From string
	To   string
}

// Plan is everything that moves together with one primary file.
type Plan struct {
	SourceDir string
	TargetDir string
	Primary   Move
	Siblings  []Move
}

// Moves returns the primary followed by its siblings.
func (p Plan) Moves() []Move {
	return append([]Move{p.Primary}, p.Siblings...)
}

// CollectSiblings plans the relocation of sourcePath and the files next to it:
// files whose name starts with the source stem are renamed to the destination
// stem, fanart/poster files keep their name. Siblings are in name order.
func CollectSiblings(sourcePath string, dest Destination) (Plan, error) {
	sourceDir := filepath.Dir(sourcePath)
	primaryName := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(primaryName, filepath.Ext(primaryName))

	plan := Plan{
		SourceDir: sourceDir,
		TargetDir: dest.Dir,
		Primary:   Move{From: sourcePath, To: dest.Path},
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return plan, fmt.Errorf("list %s: %w", sourceDir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if n == primaryName {
			continue
		}

		switch {
		case hasPrefixFold(n, stem):
			plan.Siblings = append(plan.Siblings, Move{
				From: filepath.Join(sourceDir, n),
				To:   filepath.Join(dest.Dir, dest.Name+n[len(stem):]),
			})
		case isAuxiliary(n):
			plan.Siblings = append(plan.Siblings, Move{
				From: filepath.Join(sourceDir, n),
				To:   filepath.Join(dest.Dir, n),
			})
		}
	}
	return plan, nil
}

func isAuxiliary(name string) bool {
	for _, p := range auxiliaryPrefixes {
		if hasPrefixFold(name, p) {
			return true
		}
	}
	return false
}
