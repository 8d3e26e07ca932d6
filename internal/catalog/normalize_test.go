package catalog

import "testing"

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"  Foo  ":      "foo",
		"Foo   Bar":    "foo bar",
		"":             "",
		"  ":           "",
		"Mixed	Case":   "mixed case",
		"Two  Words  ": "two words",
		"ÉCHINODERME":  "échinoderme",
	}
	for in, expect := range cases {
		if got := NormalizeTag(in); got != expect {
			t.Fatalf("normalize %q => %q, expected %q", in, got, expect)
		}
	}
}

func TestNormalizeTagsKeepsFirstSeenOrder(t *testing.T) {
	in := []string{"Larva", "plankton", "LARVA", " Sea  Urchin ", ""}
	norm := NormalizeTags(in)
	expect := []string{"larva", "plankton", "sea urchin"}
	if len(norm) != len(expect) {
		t.Fatalf("expected %d tags got %d", len(expect), len(norm))
	}
	for i := range norm {
		if norm[i] != expect[i] {
			t.Fatalf("tag %d expected %q got %q", i, expect[i], norm[i])
		}
	}
	if text := TagText(in); text != "larva, plankton, sea urchin" {
		t.Fatalf("tag text expected %q got %q", "larva, plankton, sea urchin", text)
	}
}

func TestNormalizeCaption(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"   ":             "",
		"A veliger larva": "A veliger larva.",
		"Done.":           "Done.",
		"Trailing  \n":    "Trailing.",
		"  Leading":       "  Leading.",
	}
	for in, expect := range cases {
		if got := NormalizeCaption(in); got != expect {
			t.Fatalf("caption %q => %q, expected %q", in, got, expect)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"", "x", "A, b, A", " Caption ", "café", "Larva, Plankton,,"}
	for _, f := range Fields() {
		for _, in := range inputs {
			once := Normalize(f, in)
			if twice := Normalize(f, once); twice != once {
				t.Fatalf("%s: normalize(%q) = %q, again %q", f, in, once, twice)
			}
		}
	}
}

func TestNormalizeComposesUnicode(t *testing.T) {
	if got := Normalize(FieldCity, "Sa\u0303o Paulo"); got != "S\u00e3o Paulo" {
		t.Fatalf("expected composed form, got %q", got)
	}
}
