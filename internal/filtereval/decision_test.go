package filtereval

import "testing"

func TestInvertLeavesPruneAlone(t *testing.T) {
	if got := Prune.Invert(true); got != Prune {
		t.Errorf("Prune.Invert(true) = %v, want Prune", got)
	}
	if got := True.Invert(true); got != False {
		t.Errorf("True.Invert(true) = %v, want False", got)
	}
	if got := False.Invert(true); got != True {
		t.Errorf("False.Invert(true) = %v, want True", got)
	}
	if got := True.Invert(false); got != True {
		t.Errorf("True.Invert(false) = %v, want True", got)
	}
}

func TestCombineAndPruneDominates(t *testing.T) {
	cases := []struct {
		name string
		in   []Decision
		want Decision
	}{
		{"all true", []Decision{True, True}, True},
		{"one false", []Decision{True, False, True}, False},
		{"one prune beats false", []Decision{False, Prune, True}, Prune},
		{"single prune", []Decision{Prune}, Prune},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CombineAnd(tc.in); got != tc.want {
				t.Errorf("CombineAnd(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCombineOrTrueDominates(t *testing.T) {
	cases := []struct {
		name string
		in   []Decision
		want Decision
	}{
		{"one true wins over prune", []Decision{Prune, True, False}, True},
		{"all prune", []Decision{Prune, Prune}, Prune},
		{"prune and false, no true", []Decision{Prune, False}, False},
		{"all false", []Decision{False, False}, False},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CombineOr(tc.in); got != tc.want {
				t.Errorf("CombineOr(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
