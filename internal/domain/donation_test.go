package domain

import "testing"

func TestQualifies_Boundary(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		kind   DonationKind
		want   bool
	}{
		{"one-time at threshold", 10, KindOneTime, true},
		{"one-time just below threshold", 9, KindOneTime, false},
		{"one-time above threshold", 25, KindOneTime, true},
		{"one-time tiny", 1, KindOneTime, false},
		{"recurring below threshold", 5, KindRecurring, true},
		{"recurring above threshold", 30, KindRecurring, true},
		{"recurring zero", 0, KindRecurring, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Qualifies(tc.amount, tc.kind); got != tc.want {
				t.Fatalf("Qualifies(%v, %s) = %v, want %v", tc.amount, tc.kind, got, tc.want)
			}
		})
	}
}

func TestPlanAmount(t *testing.T) {
	cases := []struct {
		plan   Plan
		amount int
		ok     bool
	}{
		{PlanSeedling, 5, true},
		{PlanGuardian, 15, true},
		{PlanRanger, 30, true},
		{Plan("oak"), 0, false},
		{Plan(""), 0, false},
	}

	for _, tc := range cases {
		amount, ok := PlanAmount(tc.plan)
		if amount != tc.amount || ok != tc.ok {
			t.Fatalf("PlanAmount(%q) = (%d, %v), want (%d, %v)", tc.plan, amount, ok, tc.amount, tc.ok)
		}
	}
}

func TestValidSpecies(t *testing.T) {
	for _, s := range AllSpecies {
		if !ValidSpecies(s) {
			t.Fatalf("expected %q to be a valid species", s)
		}
	}
	if ValidSpecies(TreeSpecies("cactus")) {
		t.Fatal("expected cactus to be rejected")
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "amount", Message: "must be greater than zero"}
	want := "invalid amount: must be greater than zero"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
