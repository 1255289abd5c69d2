package stack

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
)

// StartupOrder returns the services sorted so every dependency precedes its
// dependants. Ties are broken lexically, so the order is deterministic for a
// given spec. A dependency cycle is reported with its members.
func (s *Spec) StartupOrder() ([]string, error) {
	indegree := make(map[string]int, len(s.Services))
	dependants := make(map[string][]string, len(s.Services))

	for name := range s.Services {
		indegree[name] += 0
	}
	for name, svc := range s.Services {
		for dep := range svc.DependsOn {
			if _, ok := s.Services[dep]; !ok {
				return nil, fmt.Errorf("%w - service '%s' depends on undeclared service '%s'", lib.BadUserInputError, name, dep)
			}
			indegree[name]++
			dependants[dep] = append(dependants[dep], name)
		}
	}

	ready := make([]string, 0, len(indegree))
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(s.Services))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		unblocked := make([]string, 0, len(dependants[next]))
		for _, dependant := range dependants[next] {
			indegree[dependant]--
			if indegree[dependant] == 0 {
				unblocked = append(unblocked, dependant)
			}
		}
		sort.Strings(unblocked)
		ready = mergeSorted(ready, unblocked)
	}

	if len(order) != len(s.Services) {
		remaining := make([]string, 0, len(indegree))
		for name, deg := range indegree {
			if deg > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, fmt.Errorf("%w - dependency cycle involving services: %s", lib.BadUserInputError, strings.Join(remaining, ", "))
	}

	return order, nil
}

// ShutdownOrder is the startup order reversed: dependants stop before the
// services they depend on.
func (s *Spec) ShutdownOrder() ([]string, error) {
	order, err := s.StartupOrder()
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

func mergeSorted(a, b []string) []string {
	merged := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			merged = append(merged, a[i])
			i++
			continue
		}
		merged = append(merged, b[j])
		j++
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged
}
