package graph

import (
	"fmt"
	"sort"
	"strings"
)

type Node interface {
	GetName() string
	GetDependencies() []string
}

// TopologicalSort orders nodes so that every node follows its dependencies.
// Ties are broken by name, so the same graph always yields the same order.
func TopologicalSort(nodes map[string]Node) ([]string, error) {
	done := make(map[string]bool, len(nodes))
	var path []string
	result := make([]string, 0, len(nodes))

	var visit func(string) error
	visit = func(name string) error {
		if done[name] {
			return nil
		}
		for i, onPath := range path {
			if onPath == name {
				cycle := append(append([]string(nil), path[i:]...), name)
				return fmt.Errorf("cycle detected in dependencies: %s", strings.Join(cycle, " -> "))
			}
		}

		node, exists := nodes[name]
		if !exists {
			return fmt.Errorf("node %s not found", name)
		}

		path = append(path, name)
		for _, dep := range sortedCopy(node.GetDependencies()) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]

		done[name] = true
		result = append(result, name)
		return nil
	}

	for _, name := range names(nodes) {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// ValidateGraph reports the first dependency, in name order, that points at no node.
func ValidateGraph(nodes map[string]Node) error {
	for _, name := range names(nodes) {
		for _, dep := range nodes[name].GetDependencies() {
			if _, exists := nodes[dep]; !exists {
				return fmt.Errorf("node %s depends on %s which does not exist", name, dep)
			}
		}
	}
	return nil
}

func names(nodes map[string]Node) []string {
	out := make([]string, 0, len(nodes))
	for name := range nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
