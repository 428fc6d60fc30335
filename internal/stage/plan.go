package stage

import (
	"fmt"
	"slices"
	"strings"
)

// Plan orders definitions into execution levels. Every stage of a level
// depends only on stages of earlier levels, so a level may run concurrently.
// Order inside a level follows the input order.
func Plan(defs []Definition) ([][]Definition, error) {
	index := make(map[Name]int, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if _, dup := index[def.Name]; dup {
			return nil, fmt.Errorf("stage %s is declared twice", def.Name)
		}
		index[def.Name] = i
	}

	pending := make([]int, len(defs))
	dependents := make([][]int, len(defs))
	for i, def := range defs {
		for _, dep := range def.Dependencies {
			at, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("stage %s depends on unknown stage %s", def.Name, dep)
			}
			if at == i {
				return nil, fmt.Errorf("stage %s depends on itself", def.Name)
			}
			pending[i]++
			dependents[at] = append(dependents[at], i)
		}
	}

	var ready []int
	for i := range defs {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	var levels [][]Definition
	placed := 0
	for len(ready) > 0 {
		level := make([]Definition, 0, len(ready))
		var next []int
		for _, i := range ready {
			level = append(level, defs[i])
			for _, d := range dependents[i] {
				pending[d]--
				if pending[d] == 0 {
					next = append(next, d)
				}
			}
		}
		slices.Sort(next)
		levels = append(levels, level)
		placed += len(level)
		ready = next
	}

	if placed != len(defs) {
		var stuck []string
		for i, def := range defs {
			if pending[i] > 0 {
				stuck = append(stuck, string(def.Name))
			}
		}
		return nil, fmt.Errorf("dependency cycle between stages %s", strings.Join(stuck, ", "))
	}

	return levels, nil
}

// Describe renders levels as "a, b -> c -> d" for logs and the CLI.
func Describe(levels [][]Definition) string {
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		names := make([]string, 0, len(level))
		for _, def := range level {
			names = append(names, string(def.Name))
		}
		parts = append(parts, strings.Join(names, ", "))
	}
	return strings.Join(parts, " -> ")
}
