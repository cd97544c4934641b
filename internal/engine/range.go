package engine

import (
	"fmt"
	"math"

	"pairPool/internal/model"
)

// SeqRange is an inclusive range of operation sequence numbers.
type SeqRange struct {
	From uint64
	To   uint64
}

// Batch is the run of operations whose sequence numbers fall in Range.
type Batch struct {
	Range SeqRange
	Ops   []model.Operation
}

// BatchOperations cuts ops, ordered by strictly increasing Seq, into ranges
// of size sequence numbers counted from the first operation. Ranges holding
// no operation are left out, so gaps in the sequence cost nothing.
func BatchOperations(ops []model.Operation, size uint64) ([]Batch, error) {
	if size == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if len(ops) == 0 {
		return nil, nil
	}

	base := ops[0].Seq
	var batches []Batch
	for i := 0; i < len(ops); {
		from := base + (ops[i].Seq-base)/size*size
		to := uint64(math.MaxUint64)
		if from <= math.MaxUint64-(size-1) {
			to = from + size - 1
		}

		j := i
		for j < len(ops) && ops[j].Seq <= to {
			j++
		}
		batches = append(batches, Batch{Range: SeqRange{From: from, To: to}, Ops: ops[i:j]})
		i = j
	}
	return batches, nil
}
