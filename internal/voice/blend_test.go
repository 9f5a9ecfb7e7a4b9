package voice

import (
	"errors"
	"math"
	"testing"
)

func TestParseBlend_SingleVoice(t *testing.T) {
	b, err := ParseBlend("af_bella")
	if err != nil {
		t.Fatalf("ParseBlend failed: %v", err)
	}

	if !b.Single() {
		t.Errorf("expected degenerate single-voice blend, got %d components", len(b.Components))
	}
	if b.Components[0].ID != "af_bella" {
		t.Errorf("expected af_bella, got %s", b.Components[0].ID)
	}
	if b.Components[0].Weight != 1.0 {
		t.Errorf("expected weight 1.0, got %v", b.Components[0].Weight)
	}
	if b.Canonical() != "af_bella" {
		t.Errorf("single-voice canonical form should be the bare ID, got %q", b.Canonical())
	}
}

func TestParseBlend_WeightNormalization(t *testing.T) {
	b, err := ParseBlend("af_bella(2)+af_sky(1)")
	if err != nil {
		t.Fatalf("ParseBlend failed: %v", err)
	}

	if len(b.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(b.Components))
	}

	sum := 0.0
	for _, c := range b.Components {
		if c.Weight <= 0 {
			t.Errorf("component %s has non-positive weight %v", c.ID, c.Weight)
		}
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weights should sum to 1.0, got %v", sum)
	}

	// Components are ordered by identifier.
	if b.Components[0].ID != "af_bella" || b.Components[1].ID != "af_sky" {
		t.Errorf("components not ordered by ID: %+v", b.Components)
	}
	if math.Abs(b.Components[0].Weight-2.0/3.0) > 1e-9 {
		t.Errorf("expected af_bella weight 2/3, got %v", b.Components[0].Weight)
	}
}

func TestParseBlend_CanonicalEquivalence(t *testing.T) {
	specs := []string{
		"a(2)+b(1)",
		"b(1)+a(2)",
		"a(4)+b(2)",
		" a ( 2 ) + b ( 1 ) ",
	}

	var canonical string
	for i, spec := range specs {
		b, err := ParseBlend(spec)
		if err != nil {
			t.Fatalf("ParseBlend(%q) failed: %v", spec, err)
		}
		if i == 0 {
			canonical = b.Canonical()
			continue
		}
		if got := b.Canonical(); got != canonical {
			t.Errorf("ParseBlend(%q).Canonical() = %q, want %q", spec, got, canonical)
		}
	}

	if canonical != "a(0.6667)+b(0.3333)" {
		t.Errorf("unexpected canonical form: %q", canonical)
	}
}

func TestParseBlend_OmittedWeightDefaultsToOne(t *testing.T) {
	b, err := ParseBlend("af_bella+af_sky")
	if err != nil {
		t.Fatalf("ParseBlend failed: %v", err)
	}
	for _, c := range b.Components {
		if math.Abs(c.Weight-0.5) > 1e-9 {
			t.Errorf("expected equal 0.5 weights, got %v for %s", c.Weight, c.ID)
		}
	}
}

func TestParseBlend_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty string", ""},
		{"whitespace only", "   "},
		{"leading separator", "+af_bella"},
		{"trailing separator", "af_bella+"},
		{"duplicate voice", "af_bella(2)+af_bella(1)"},
		{"negative weight", "af_bella(-1)"},
		{"zero weight", "af_bella(0)"},
		{"non-numeric weight", "af_bella(fast)"},
		{"weight without voice", "(2)+af_bella"},
		{"unterminated weight", "af_bella(2"},
		{"unmatched close paren", "af_bella2)"},
		{"trailing garbage", "af_bella(2)x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBlend(tt.spec)
			if err == nil {
				t.Fatalf("ParseBlend(%q) should have failed", tt.spec)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Errorf("expected *SyntaxError, got %T: %v", err, err)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	info := Describe("af_bella")
	if info.Name != "Bella" {
		t.Errorf("expected name Bella, got %q", info.Name)
	}
	if info.Language != "en-US" || info.Gender != "female" {
		t.Errorf("unexpected metadata: %+v", info)
	}

	unknown := Describe("xx_mystery")
	if unknown.Language != "unknown" {
		t.Errorf("unknown prefix should yield unknown language, got %q", unknown.Language)
	}
}
