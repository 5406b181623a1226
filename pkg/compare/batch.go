package compare

import (
	"context"

	"github.com/sdejongh/cmpf/pkg/models"
)

type resultWithKey struct {
	key    string
	result models.ComparisonResult
}

// compareBatch materializes the key plan, fans the common paths out to the
// pool, then emits everything at once.
func (d *Differ) compareBatch(ctx context.Context, side1, side2 models.Inventory, emit func(models.ComparisonResult)) error {
	plan := PlanKeys(side1, side2, d.cfg.Sort)

	common := make([]models.ComparisonResult, len(plan.Common))
	d.progress.Start(len(plan.Common))
	err := d.pool.ForEach(ctx, len(plan.Common), func(_ context.Context, i int) error {
		key := plan.Common[i]
		a, b := side1[key], side2[key]
		common[i] = d.ComparePair(a.RelPath, a, b)
		d.progress.Increment()
		return nil
	})
	d.progress.Finish()
	if err != nil {
		return err
	}

	results := make([]resultWithKey, 0, plan.Total())
	for i, key := range plan.Common {
		results = append(results, resultWithKey{key: key, result: common[i]})
	}
	for _, key := range plan.Only1 {
		results = append(results, resultWithKey{key: key, result: Missing(side1[key].RelPath, side1[key])})
	}
	for _, key := range plan.Only2 {
		results = append(results, resultWithKey{key: key, result: Extra(side2[key].RelPath, side2[key])})
	}

	if d.cfg.Sort {
		sortResults(results)
	}
	for _, r := range results {
		emit(r.result)
	}
	return nil
}
