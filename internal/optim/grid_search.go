// Package optim chooses the next applied field for a hysteresis model so
// that its predicted magnetization reaches a target.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

// GridSearch scans evenly spaced candidate fields over the valid domain.
type GridSearch struct {
	points    int
	batchSize int
}

func NewGridSearch(points int) *GridSearch {
	return &GridSearch{points: points, batchSize: 256}
}

// Candidate is one evaluated next field.
type Candidate struct {
	Field     float64
	Predicted float64
	Error     float64
}

// Search predicts every grid field as the next step in next mode and
// returns the candidate closest to target. The model is not modified.
func (g *GridSearch) Search(ctx context.Context, md *model.Model, target float64) (Candidate, error) {
	if g.points < 2 {
		return Candidate{}, fmt.Errorf("%w: grid needs at least 2 points, got %d", preisach.ErrConfiguration, g.points)
	}
	domain := md.ValidDomain()
	fields := make([]float64, g.points)
	for i := range fields {
		fields[i] = domain[0] + (domain[1]-domain[0])*float64(i)/float64(g.points-1)
	}

	best := Candidate{Error: math.Inf(1)}
	for start := 0; start < len(fields); start += g.batchSize {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		end := min(start+g.batchSize, len(fields))
		pred, err := md.Evaluate(model.Next, fields[start:end], true)
		if err != nil {
			return Candidate{}, err
		}
		for i, p := range pred {
			if e := math.Abs(p - target); e < best.Error {
				best = Candidate{Field: fields[start+i], Predicted: p, Error: e}
			}
		}
	}
	return best, nil
}
