package name

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim and lowercase", "  Jane Doe ", "jane doe"},
		{"collapse whitespace", "Jane \t  Doe", "jane doe"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"en dash", "Anne–Marie Dupont", "anne-marie dupont"},
		{"non-breaking hyphen", "Anne‑Marie Dupont", "anne-marie dupont"},
		{"fullwidth hyphen", "Anne－Marie Dupont", "anne-marie dupont"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_AllDashes(t *testing.T) {
	want := Normalize("Anne-Marie Dupont")
	for _, d := range dashes {
		input := "Anne" + string(d) + "Marie Dupont"
		if got := Normalize(input); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
		}
		if !IsDash(d) {
			t.Errorf("IsDash(%U) = false", d)
		}
	}
	if IsDash('_') {
		t.Error("IsDash('_') = true")
	}
}

func TestCompactInitials(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"J.Smith", "j smith"},
		{"j.   smith", "j smith"},
		{"J. Smith", "j smith"},
		{"J Smith", "j smith"},
		{"J.-P. Dupont", "j-p dupont"},
		{"Jane Doe", "jane doe"},
	}
	for _, tt := range tests {
		if got := CompactInitials(tt.input); got != tt.want {
			t.Errorf("CompactInitials(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestKey_Diacritics(t *testing.T) {
	if got, want := Key("Jörg Müller"), "jorg muller"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
	if Key("José García") != Key("Jose Garcia") {
		t.Error("Key() differs with and without diacritics")
	}
}

func TestAbbreviate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"jane doe", "j doe"},
		{"jane alice doe", "j alice doe"},
		{"doe", "doe"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Abbreviate(tt.input); got != tt.want {
			t.Errorf("Abbreviate(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLastName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jane Doe", "doe"},
		{"J. Doe", "doe"},
		{"Müller", "muller"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := LastName(tt.input); got != tt.want {
			t.Errorf("LastName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsInitial(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"j", true},
		{"J.", true},
		{"jo", false},
		{"", false},
		{"1", false},
	}
	for _, tt := range tests {
		if got := IsInitial(tt.token); got != tt.want {
			t.Errorf("IsInitial(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}
