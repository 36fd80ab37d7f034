package visa

import "testing"

func TestLookup(t *testing.T) {
	if _, ok := Lookup("Canada", "Study Permit"); !ok {
		t.Fatal("known country/visa pair not found")
	}
	if _, ok := Lookup("Canada", "Moon Visa"); ok {
		t.Fatal("unknown visa type resolved")
	}
	if _, ok := Lookup("Atlantis", "Study Permit"); ok {
		t.Fatal("unknown country resolved")
	}
}

func TestIsTestCountryIgnoresCase(t *testing.T) {
	for _, name := range []string{"Test", "test", "TEST", "tEsT"} {
		if !IsTestCountry(name) {
			t.Fatalf("IsTestCountry(%q) = false", name)
		}
	}
	if IsTestCountry("Testland") {
		t.Fatal(`IsTestCountry("Testland") = true`)
	}
}
