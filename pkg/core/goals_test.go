package core

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func validGoal(id string, date time.Time) Goal {
	return Goal{
		ID:       id,
		Date:     date,
		Priority: 7,
		Targets: []Target{
			{ID: "t1", Metric: MetricCTL, Direction: AtLeast, Value: 75},
		},
	}
}

func TestGoalValidate(t *testing.T) {
	date := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		mutate  func(*Goal)
		wantErr bool
	}{
		{
			name:    "Test case 1: Valid goal",
			mutate:  func(g *Goal) {},
			wantErr: false,
		},
		{
			name:    "Test case 2: Missing id",
			mutate:  func(g *Goal) { g.ID = "" },
			wantErr: true,
		},
		{
			name:    "Test case 3: Missing date",
			mutate:  func(g *Goal) { g.Date = time.Time{} },
			wantErr: true,
		},
		{
			name:    "Test case 4: Priority above 10",
			mutate:  func(g *Goal) { g.Priority = 11 },
			wantErr: true,
		},
		{
			name:    "Test case 5: Negative priority",
			mutate:  func(g *Goal) { g.Priority = -1 },
			wantErr: true,
		},
		{
			name:    "Test case 6: No targets",
			mutate:  func(g *Goal) { g.Targets = nil },
			wantErr: true,
		},
		{
			name:    "Test case 7: Unsupported metric",
			mutate:  func(g *Goal) { g.Targets[0].Metric = "vo2max" },
			wantErr: true,
		},
		{
			name:    "Test case 8: Unsupported direction",
			mutate:  func(g *Goal) { g.Targets[0].Direction = "exactly" },
			wantErr: true,
		},
		{
			name:    "Test case 9: Negative target weight",
			mutate:  func(g *Goal) { g.Targets[0].Weight = -0.5 },
			wantErr: true,
		},
		{
			name:    "Test case 10: Non-finite target value",
			mutate:  func(g *Goal) { g.Targets[0].Value = math.Inf(1) },
			wantErr: true,
		},
		{
			name:    "Test case 11: Missing target id",
			mutate:  func(g *Goal) { g.Targets[0].ID = "" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGoal("race", date)
			tt.mutate(&g)
			if err := g.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGoals(t *testing.T) {
	date := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		goals   []Goal
		wantErr bool
	}{
		{
			name:    "Test case 1: Two distinct goals",
			goals:   []Goal{validGoal("a", date), validGoal("b", date.AddDate(0, 1, 0))},
			wantErr: false,
		},
		{
			name:    "Test case 2: Empty goal set",
			goals:   nil,
			wantErr: true,
		},
		{
			name:    "Test case 3: Duplicate goal ids",
			goals:   []Goal{validGoal("a", date), validGoal("a", date.AddDate(0, 1, 0))},
			wantErr: true,
		},
		{
			name:    "Test case 4: One invalid goal fails the set",
			goals:   []Goal{validGoal("a", date), {ID: "b", Date: date}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateGoals(tt.goals); (err != nil) != tt.wantErr {
				t.Errorf("ValidateGoals() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSortGoals(t *testing.T) {
	d1 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	in := []Goal{validGoal("z", d2), validGoal("b", d1), validGoal("a", d1)}

	got := SortGoals(in)
	wantOrder := []string{"a", "b", "z"}
	var gotOrder []string
	for _, g := range got {
		gotOrder = append(gotOrder, g.ID)
	}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Errorf("SortGoals() order = %v, want %v", gotOrder, wantOrder)
	}

	// The input slice is never reordered.
	if in[0].ID != "z" {
		t.Errorf("SortGoals() mutated its input, first id = %q", in[0].ID)
	}
}

func TestTargetEffectiveWeight(t *testing.T) {
	if got := (Target{}).EffectiveWeight(); got != 1.0 {
		t.Errorf("EffectiveWeight() zero default = %v, want 1.0", got)
	}
	if got := (Target{Weight: 2.5}).EffectiveWeight(); got != 2.5 {
		t.Errorf("EffectiveWeight() = %v, want 2.5", got)
	}
}
