package detection

import (
	"reflect"
	"testing"

	"digital-surveyor/pkg/geometry"
	"digital-surveyor/pkg/models"
)

func TestMergeCloseCollapsesFragments(t *testing.T) {
	// Одна царапина, разбитая детектором на три куска по 30 px.
	boxes := []geometry.Box{
		geometry.NewBox(0, 0, 20, 10),
		geometry.NewBox(30, 0, 50, 10),
		geometry.NewBox(60, 0, 80, 10),
	}

	got := MergeClose(boxes, DefaultMergeDistance)
	want := []geometry.Box{geometry.NewBox(0, 0, 80, 10)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMergeCloseKeepsDistantBoxes(t *testing.T) {
	boxes := []geometry.Box{
		geometry.NewBox(0, 0, 20, 20),
		geometry.NewBox(200, 200, 220, 220),
	}
	got := MergeClose(boxes, DefaultMergeDistance)
	if !reflect.DeepEqual(got, boxes) {
		t.Fatalf("distant boxes changed: %+v", got)
	}
}

func TestMergeCloseEmpty(t *testing.T) {
	if got := MergeClose(nil, DefaultMergeDistance); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestMergeCloseReachesFixpoint(t *testing.T) {
	// Вторая рамка далека от первой, пока та не поглотит третью.
	boxes := []geometry.Box{
		geometry.NewBox(0, 0, 20, 20),
		geometry.NewBox(65, 0, 85, 20),
		geometry.NewBox(40, 0, 60, 20),
	}

	got := MergeClose(boxes, DefaultMergeDistance)
	want := []geometry.Box{geometry.NewBox(0, 0, 85, 20)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMergeCloseIdempotent(t *testing.T) {
	inputs := [][]geometry.Box{
		{
			geometry.NewBox(0, 0, 20, 20),
			geometry.NewBox(65, 0, 85, 20),
			geometry.NewBox(40, 0, 60, 20),
			geometry.NewBox(300, 300, 340, 310),
		},
		{
			geometry.NewBox(10, 10, 30, 15),
			geometry.NewBox(35, 12, 70, 18),
			geometry.NewBox(500, 20, 540, 60),
			geometry.NewBox(520, 40, 560, 80),
		},
	}
	for i, in := range inputs {
		once := MergeClose(in, DefaultMergeDistance)
		twice := MergeClose(once, DefaultMergeDistance)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("case %d: second merge changed result: %+v -> %+v", i, once, twice)
		}
	}
}

func TestFilterReflections(t *testing.T) {
	square := geometry.NewBox(0, 0, 20, 20)

	tests := []struct {
		name      string
		box       geometry.Box
		imageArea float64
		kept      bool
	}{
		{"large square removed", square, 100 * 80, false},   // 5% кадра
		{"small square kept", square, 200 * 400, true},      // 0.5% кадра
		{"large elongated kept", geometry.NewBox(0, 0, 60, 10), 100 * 80, true},
		{"outside square tolerance", geometry.NewBox(0, 0, 24, 20), 100 * 80, true}, // 1.2
		{"degenerate kept", geometry.NewBox(0, 0, 20, 0), 100 * 80, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterReflections([]geometry.Box{tt.box}, tt.imageArea, DefaultSquareTolerance, DefaultMinReflectionShare)
			if (len(got) == 1) != tt.kept {
				t.Errorf("kept=%v, want %v", len(got) == 1, tt.kept)
			}
		})
	}
}

func TestProcessReannotatesByNearestBox(t *testing.T) {
	raw := []models.Detection{
		{Box: geometry.NewBox(0, 0, 20, 5), Label: "scratch", Confidence: 0.4},
		{Box: geometry.NewBox(30, 0, 50, 5), Label: "scratch", Confidence: 0.6},
		{Box: geometry.NewBox(400, 400, 460, 430), Label: "dent", Confidence: 0.9},
	}

	p := NewPostProcessor(DefaultConfig())
	got := p.Process(raw, 1000, 1000)

	if len(got) != 2 {
		t.Fatalf("expected 2 detections, got %d: %+v", len(got), got)
	}
	if got[0].Box != geometry.NewBox(0, 0, 50, 5) {
		t.Errorf("unexpected merged box %+v", got[0].Box)
	}
	// Центр склейки (25, 2.5) равноудален от обеих исходных: берется первая.
	if got[0].Label != "scratch" || got[0].Confidence != 0.4 {
		t.Errorf("expected first fragment annotation, got %+v", got[0])
	}
	if got[1].Label != "dent" || got[1].Confidence != 0.9 {
		t.Errorf("dent annotation lost: %+v", got[1])
	}
}

func TestProcessEmpty(t *testing.T) {
	p := NewPostProcessor(DefaultConfig())
	if got := p.Process(nil, 640, 480); len(got) != 0 {
		t.Fatalf("expected no detections, got %+v", got)
	}
}
