package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

func trainedModel(t *testing.T) *model.Model {
	t.Helper()
	md, err := model.New(model.DefaultOptions(),
		[]float64{-1, -0.5, 0, 0.5, 1},
		[]float64{-1, -0.4, 0.1, 0.6, 1},
	)
	if err != nil {
		t.Fatalf("model.New failed: %v", err)
	}
	return md
}

func TestGridSearch(t *testing.T) {
	md := trainedModel(t)
	pred, err := md.Evaluate(model.Next, []float64{0.3}, true)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	best, err := NewGridSearch(21).Search(context.Background(), md, pred[0])
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if math.Abs(best.Field-0.3) > 1e-9 {
		t.Errorf("expected grid point 0.3, got %f", best.Field)
	}
	if best.Error > 1e-12 {
		t.Errorf("expected exact match on the grid, error %e", best.Error)
	}

	if _, err := NewGridSearch(1).Search(context.Background(), md, 0); !errors.Is(err, preisach.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for a single point grid, got %v", err)
	}
}

func TestSuggest_RefinesGrid(t *testing.T) {
	md := trainedModel(t)
	before := md.HistoryH()

	pred, err := md.Evaluate(model.Next, []float64{0.337}, true)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	target := pred[0]

	grid, err := NewGridSearch(21).Search(context.Background(), md, target)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	s, err := Suggest(context.Background(), md, target, Config{GridPoints: 21, RefineIterations: 30})
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if s.Error > grid.Error {
		t.Errorf("refined error %e worse than grid %e", s.Error, grid.Error)
	}
	if s.Error > 1e-2 {
		t.Errorf("suggestion error too large: %e", s.Error)
	}
	domain := md.ValidDomain()
	if s.Field < domain[0] || s.Field > domain[1] {
		t.Errorf("suggested field %f outside domain %v", s.Field, domain)
	}

	after := md.HistoryH()
	if len(after) != len(before) {
		t.Fatal("Suggest modified the model history")
	}
}

func TestSuggest_UnreachableTarget(t *testing.T) {
	md := trainedModel(t)
	s, err := Suggest(context.Background(), md, -100, DefaultConfig())
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if s.Field > md.ValidDomain()[0]+0.05 {
		t.Errorf("expected the lower domain edge, got %f", s.Field)
	}
}

func TestSuggest_Errors(t *testing.T) {
	md := trainedModel(t)
	if _, err := Suggest(context.Background(), md, math.NaN(), DefaultConfig()); !errors.Is(err, preisach.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for NaN target, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Suggest(ctx, md, 0, DefaultConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
