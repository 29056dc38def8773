package sas7bdat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
)

func TestRecordMissingObservation_System(t *testing.T) {
	var policy dataset.MissingPolicy

	recordMissingObservation(&policy, cell.SystemMissing{})

	assert.True(t, policy.SystemMissing)
}

func TestRecordMissingObservation_TaggedAccumulatesUniqueTags(t *testing.T) {
	var policy dataset.MissingPolicy

	recordMissingObservation(&policy, cell.TaggedMissing{Tag: 'A'})
	recordMissingObservation(&policy, cell.TaggedMissing{Tag: 'A'})
	recordMissingObservation(&policy, cell.TaggedMissing{Tag: 'B'})

	assert.Len(t, policy.Tagged, 2)
	assert.False(t, policy.SystemMissing)
}

func TestRecordMissingObservation_UnderscoreTagImpliesSystemMissing(t *testing.T) {
	var policy dataset.MissingPolicy

	recordMissingObservation(&policy, cell.TaggedMissing{Tag: '_'})

	assert.True(t, policy.SystemMissing)
	assert.Len(t, policy.Tagged, 1)
}

func TestRecordMissingObservation_NumericRange(t *testing.T) {
	var policy dataset.MissingPolicy

	recordMissingObservation(&policy, cell.RangeMissing{
		Lower: dataset.NumericLiteral(1),
		Upper: dataset.NumericLiteral(5),
	})
	recordMissingObservation(&policy, cell.RangeMissing{
		Lower: dataset.NumericLiteral(1),
		Upper: dataset.NumericLiteral(5),
	})

	assert.Equal(t, []dataset.MissingRange{dataset.NumericRange{Start: 1, End: 5}}, policy.Ranges)
}

func TestRecordMissingObservation_MismatchedRangeTypesIgnored(t *testing.T) {
	var policy dataset.MissingPolicy

	recordMissingObservation(&policy, cell.RangeMissing{
		Lower: dataset.NumericLiteral(1),
		Upper: dataset.StringLiteral("z"),
	})

	assert.Empty(t, policy.Ranges)
}

func TestDedupMissingPolicies(t *testing.T) {
	vars := []dataset.Variable{
		{
			Missing: dataset.MissingPolicy{
				Tagged: []dataset.TaggedMissing{
					{Tag: 'A'}, {Tag: 'A'}, {Tag: 'B'},
				},
				Ranges: []dataset.MissingRange{
					dataset.NumericRange{Start: 0, End: 1},
					dataset.NumericRange{Start: 0, End: 1},
				},
			},
		},
	}

	dedupMissingPolicies(vars)

	assert.Len(t, vars[0].Missing.Tagged, 2)
	assert.Len(t, vars[0].Missing.Ranges, 1)
}
