package sampler

import (
	"github.com/ridgeline-eng/docqc/internal/model"
)

// Comparison is the outcome of scoring a production entity set against the
// higher-tier shadow set. The shadow output is treated as ground truth.
type Comparison struct {
	Matched        int
	Missed         int
	Incorrect      int
	FalsePositives int
}

// Accuracy is matches over everything the shadow run says should exist.
// False positives are reported but excluded from the denominator. An empty
// shadow set with no production output scores 1.0.
func (c Comparison) Accuracy() float64 {
	denom := c.Matched + c.Missed + c.Incorrect
	if denom == 0 {
		if c.FalsePositives > 0 {
			return 0
		}
		return 1.0
	}
	return float64(c.Matched) / float64(denom)
}

// Compare pairs entities by (type, natural key) and classifies each pair.
// Entities present only in the shadow set are misses, pairs with differing
// attributes are incorrect, and entities present only in production are
// false positives.
func Compare(production, shadow []model.ExtractedEntity) Comparison {
	prodByKey := make(map[model.EntityKey]model.ExtractedEntity, len(production))
	for _, e := range production {
		prodByKey[e.KeyOf()] = e
	}

	var c Comparison
	seen := make(map[model.EntityKey]struct{}, len(shadow))
	for _, truth := range shadow {
		key := truth.KeyOf()
		seen[key] = struct{}{}
		got, ok := prodByKey[key]
		if !ok {
			c.Missed++
			continue
		}
		if attributesEqual(got.Attributes, truth.Attributes) {
			c.Matched++
		} else {
			c.Incorrect++
		}
	}

	for key := range prodByKey {
		if _, ok := seen[key]; !ok {
			c.FalsePositives++
		}
	}
	return c
}

func attributesEqual(a, b model.AttributeMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !model.AttributeEqual(av, bv) {
			return false
		}
	}
	return true
}
