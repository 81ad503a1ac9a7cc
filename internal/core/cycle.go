package core

import "github.com/valter-silva-au/taskgraph/pkg/models"

// findCycle returns the IDs forming one dependency cycle in tasks, or nil if
// the graph is acyclic. Edges to unknown IDs are ignored.
func findCycle(tasks []models.Task) []string {
	const (
		unvisited = iota
		visiting
		done
	)

	index := make(map[string]*models.Task, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = &tasks[i]
	}
	state := make(map[string]int, len(tasks))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = visiting
		stack = append(stack, id)
		for _, dep := range index[id].Dependencies {
			if _, ok := index[dep.TaskID]; !ok {
				continue
			}
			switch state[dep.TaskID] {
			case visiting:
				for i, s := range stack {
					if s == dep.TaskID {
						return append([]string(nil), stack[i:]...)
					}
				}
			case unvisited:
				if c := visit(dep.TaskID); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, t := range tasks {
		if state[t.ID] == unvisited {
			if c := visit(t.ID); c != nil {
				return c
			}
		}
	}
	return nil
}
