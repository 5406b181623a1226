package compare

import (
	"sort"
)

// KeyPlan splits the union of two key sets
type KeyPlan struct {
	Common []string
	Only1  []string
	Only2  []string
}

// Total returns the size of the key union
func (p KeyPlan) Total() int {
	return len(p.Common) + len(p.Only1) + len(p.Only2)
}

// PlanKeys computes the intersection and both differences of two maps' keys
func PlanKeys[V, W any](side1 map[string]V, side2 map[string]W, sorted bool) KeyPlan {
	var plan KeyPlan
	for k := range side1 {
		if _, ok := side2[k]; ok {
			plan.Common = append(plan.Common, k)
		} else {
			plan.Only1 = append(plan.Only1, k)
		}
	}
	for k := range side2 {
		if _, ok := side1[k]; !ok {
			plan.Only2 = append(plan.Only2, k)
		}
	}

	if sorted {
		sort.Strings(plan.Common)
		sort.Strings(plan.Only1)
		sort.Strings(plan.Only2)
	}
	return plan
}

func sortResults(results []resultWithKey) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].key < results[j].key
	})
}
