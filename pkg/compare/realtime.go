package compare

import (
	"context"
	"sort"

	"github.com/sdejongh/cmpf/pkg/models"
)

// compareRealtime walks side1 and emits each result as soon as it is known.
// Paths left on side2 are emitted as EXTRA at the end.
func (d *Differ) compareRealtime(ctx context.Context, side1, side2 models.Inventory, emit func(models.ComparisonResult)) error {
	var keys []string
	if d.cfg.Sort {
		keys = side1.Keys()
	} else {
		keys = make([]string, 0, len(side1))
		for k := range side1 {
			keys = append(keys, k)
		}
	}

	matched := make(map[string]struct{}, len(side2))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		a := side1[key]
		b, ok := side2[key]
		if !ok {
			emit(Missing(a.RelPath, a))
			continue
		}
		matched[key] = struct{}{}
		emit(d.ComparePair(a.RelPath, a, b))
	}

	var extra []string
	for key := range side2 {
		if _, ok := matched[key]; !ok {
			extra = append(extra, key)
		}
	}
	if d.cfg.Sort {
		sort.Strings(extra)
	}
	for _, key := range extra {
		emit(Extra(side2[key].RelPath, side2[key]))
	}
	return nil
}
