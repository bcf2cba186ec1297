package rubric

import (
	"math"
	"testing"

	"github.com/Spok95/bqs/internal/models"
)

func TestDefaultRubric(t *testing.T) {
	r := Default()
	secs := r.Sections()
	if len(secs) != 9 {
		t.Fatalf("ожидали 9 секций, получили %d", len(secs))
	}
	if got := r.totalWeight(); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("сумма весов должна быть 1.00, получили %.4f", got)
	}
	if secs[0].Code != "STRAT" || secs[8].Code != "LEGAL" {
		t.Fatalf("неверный порядок секций: %s ... %s", secs[0].Code, secs[8].Code)
	}
	if w, _ := r.Weight("PROD"); w != 0.05 {
		t.Fatalf("вес PROD = %.2f, ожидали 0.05", w)
	}
}

func TestCanonical(t *testing.T) {
	r := Default()
	cases := map[string]string{
		"STRAT":                        "STRAT",
		"strat":                        "STRAT",
		"strategic_fit":                "STRAT",
		"Win Probability":              "WIN",
		"delivery-feasibility":         "FEAS",
		"Legal & Commercial Readiness": "LEGAL",
		"product_service_compliance":   "PROD",
	}
	for in, want := range cases {
		got, ok := r.Canonical(in)
		if !ok || got != want {
			t.Fatalf("Canonical(%q) = %q,%v; ожидали %q", in, got, ok, want)
		}
	}
	if _, ok := r.Canonical("unknown_section"); ok {
		t.Fatal("неизвестный код не должен распознаваться")
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, err := Parse([]byte("sections: []")); err == nil {
			t.Fatal("ожидали ошибку для пустой рубрики")
		}
	})
	t.Run("duplicate", func(t *testing.T) {
		raw := "sections:\n  - {code: A, weight: 0.5}\n  - {code: a, weight: 0.5}\n"
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatal("ожидали ошибку для дубликата кода")
		}
	})
	t.Run("bad_weight", func(t *testing.T) {
		raw := "sections:\n  - {code: A, weight: 1.5}\n"
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatal("ожидали ошибку для веса > 1")
		}
	})
}

func TestReload(t *testing.T) {
	r := Default()
	r.Reload([]models.RubricSection{{Code: "ONLY", Name: "Only", Weight: 1}})
	if len(r.Sections()) != 1 {
		t.Fatal("reload не заменил секции")
	}
	if _, ok := r.Canonical("STRAT"); ok {
		t.Fatal("старые коды должны пропасть после reload")
	}
}
