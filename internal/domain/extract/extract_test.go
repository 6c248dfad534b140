package extract

import (
	"testing"
)

func TestRuleParse_CanonicalScenario(t *testing.T) {
	t.Parallel()

	ings, conf := RuleParse("2 cups flour, 1 cup sugar, 3 eggs")
	if len(ings) != 3 {
		t.Fatalf("candidates = %d, want 3: %+v", len(ings), ings)
	}

	wantQty := []float64{2, 1, 3}
	wantUnit := []*string{ptr("cup"), ptr("cup"), nil}
	wantName := []string{"flour", "sugar", "eggs"}
	for i, ing := range ings {
		if ing.Name != wantName[i] {
			t.Errorf("[%d] name = %q, want %q", i, ing.Name, wantName[i])
		}
		if ing.Quantity == nil || *ing.Quantity != wantQty[i] {
			t.Errorf("[%d] quantity = %v, want %v", i, ing.Quantity, wantQty[i])
		}
		if (ing.Unit == nil) != (wantUnit[i] == nil) {
			t.Errorf("[%d] unit = %v, want %v", i, ing.Unit, wantUnit[i])
		} else if ing.Unit != nil && *ing.Unit != *wantUnit[i] {
			t.Errorf("[%d] unit = %q, want %q", i, *ing.Unit, *wantUnit[i])
		}
		if ing.Confidence <= 0.7 {
			t.Errorf("[%d] confidence = %.2f, want > 0.7", i, ing.Confidence)
		}
	}
	if conf < ruleSkipThreshold {
		t.Errorf("overall confidence %.2f should cross the skip threshold %.2f", conf, ruleSkipThreshold)
	}
}

func TestRuleParse_FractionsAndMixedNumbers(t *testing.T) {
	t.Parallel()

	ings, _ := RuleParse("1/2 cup milk\n1 1/2 tablespoons olive oil")
	if len(ings) != 2 {
		t.Fatalf("candidates = %d, want 2", len(ings))
	}
	if *ings[0].Quantity != 0.5 {
		t.Errorf("milk quantity = %v, want 0.5", *ings[0].Quantity)
	}
	if *ings[1].Quantity != 1.5 {
		t.Errorf("oil quantity = %v, want 1.5", *ings[1].Quantity)
	}
	if *ings[1].Unit != "tbsp" {
		t.Errorf("oil unit = %q, want tbsp", *ings[1].Unit)
	}
}

func TestRuleParse_BulletsAndPreparation(t *testing.T) {
	t.Parallel()

	ings, _ := RuleParse("- 1 onion, diced\n- 2 cloves garlic, minced")
	if len(ings) != 2 {
		t.Fatalf("candidates = %d, want 2", len(ings))
	}
	if ings[0].Name != "onion" || ings[0].Preparation != "diced" {
		t.Errorf("first = %+v", ings[0])
	}
	if *ings[1].Unit != "clove" || ings[1].Preparation != "minced" {
		t.Errorf("second = %+v", ings[1])
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want Format
	}{
		{"2 cups flour\n1 cup sugar\n3 eggs", FormatList},
		{"Start by warming the milk gently. Once it foams, whisk in the starter and let it rest overnight.", FormatProse},
		{"2 cups flour\nMix everything together well in a bowl.\nBake for an hour and let it cool completely.", FormatMixed},
	}
	for _, tc := range cases {
		if got := DetectFormat(tc.text); got != tc.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestValidate_CanonicalizesAndAnnotates(t *testing.T) {
	t.Parallel()

	qty := 2.0
	unit := "tablespoons"
	ings := Validate([]Ingredient{
		{Name: " Peanut Butter ", Quantity: &qty, Unit: &unit, Confidence: 0.9},
	})
	if len(ings) != 1 {
		t.Fatalf("ingredients = %d, want 1", len(ings))
	}
	got := ings[0]
	if got.Name != "Peanut Butter" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Unit == nil || *got.Unit != "tbsp" {
		t.Errorf("unit = %v, want tbsp", got.Unit)
	}
	if len(got.Allergens) != 1 || got.Allergens[0] != "peanuts" {
		t.Errorf("allergens = %v", got.Allergens)
	}
}

func TestValidate_FlagsAnomaliesInsteadOfDropping(t *testing.T) {
	t.Parallel()

	huge := 50000.0
	ings := Validate([]Ingredient{
		{Name: "flour", Quantity: &huge, Confidence: 0.9},
	})
	if len(ings) != 1 {
		t.Fatal("anomalous ingredient was dropped")
	}
	if len(ings[0].Issues) == 0 {
		t.Error("implausible quantity should be flagged")
	}
}

func TestValidate_DeduplicatesNearIdenticalNames(t *testing.T) {
	t.Parallel()

	ings := Validate([]Ingredient{
		{Name: "egg", Confidence: 0.9},
		{Name: "Eggs", Confidence: 0.5},
		{Name: "flour", Confidence: 0.9},
	})
	if len(ings) != 2 {
		t.Fatalf("ingredients = %+v, want egg and flour", ings)
	}
	// Keep-first: the higher-confidence original survives.
	if ings[0].Name != "egg" || ings[0].Confidence != 0.9 {
		t.Errorf("first = %+v", ings[0])
	}
}

func TestValidate_UnknownUnitBecomesNull(t *testing.T) {
	t.Parallel()

	unit := "glugs"
	ings := Validate([]Ingredient{{Name: "olive oil", Unit: &unit, Confidence: 0.8}})
	if ings[0].Unit != nil {
		t.Errorf("unit = %v, want nil for out-of-vocabulary token", *ings[0].Unit)
	}
	if len(ings[0].Issues) == 0 {
		t.Error("unknown unit should be flagged")
	}
}

func TestDegradedParse_NeverEmptyForListInput(t *testing.T) {
	t.Parallel()

	ings := DegradedParse("something, another thing; a third")
	if len(ings) == 0 {
		t.Fatal("degraded parse returned nothing for visible list input")
	}
	for _, ing := range ings {
		if ing.Confidence != confDegraded {
			t.Errorf("confidence = %.2f, want fixed %.2f", ing.Confidence, confDegraded)
		}
		if !hasIssue(ing, "validation degraded") {
			t.Errorf("%q missing degraded issue", ing.Name)
		}
	}
}

func TestCategoryAndAllergenLookups(t *testing.T) {
	t.Parallel()

	if got := CategoryFor("whole milk"); got != CategoryDairy {
		t.Errorf("milk category = %q", got)
	}
	if got := CategoryFor("mystery powder"); got != CategoryOther {
		t.Errorf("unknown category = %q", got)
	}
	if got := AllergensFor("almond flour"); len(got) != 2 {
		t.Errorf("almond flour allergens = %v, want tree nuts and gluten", got)
	}
	if got := AllergensFor("water"); len(got) != 0 {
		t.Errorf("water allergens = %v", got)
	}
}

func ptr(s string) *string { return &s }

func hasIssue(ing Ingredient, issue string) bool {
	for _, i := range ing.Issues {
		if i == issue {
			return true
		}
	}
	return false
}
