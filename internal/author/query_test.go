package author

import "testing"

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Query
	}{
		{
			name:  "single word is last name",
			input: "Doe",
			want:  Query{Last: "Doe"},
		},
		{
			name:  "two words is First Last",
			input: "Jane Doe",
			want:  Query{First: "Jane", Last: "Doe"},
		},
		{
			name:  "three words: first two are first name",
			input: "Jane A Doe",
			want:  Query{First: "Jane A", Last: "Doe"},
		},
		{
			name:  "comma format: Last, First",
			input: "Doe, Jane",
			want:  Query{First: "Jane", Last: "Doe"},
		},
		{
			name:  "leading/trailing whitespace",
			input: "  Roe  ",
			want:  Query{Last: "Roe"},
		},
		{
			name:  "empty string",
			input: "",
			want:  Query{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuery(tt.input)
			if got != tt.want {
				t.Errorf("ParseQuery(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestQueryMatches(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		fullName string
		want     bool
	}{
		{"exact last name match", Query{Last: "Yu"}, "Timothy C Yu", true},
		{"last name case insensitive", Query{Last: "yu"}, "Timothy Yu", true},
		{"last name no partial match", Query{Last: "Yu"}, "Yujia Alina Chan", false},
		{"first name prefix match", Query{First: "Tim", Last: "Yu"}, "Timothy C Yu", true},
		{"first name mismatch", Query{First: "John", Last: "Yu"}, "Timothy Yu", false},
		{"full first name with middle initial", Query{First: "Timothy C", Last: "Yu"}, "Timothy C. Yu", true},
		{"diacritics ignored", Query{Last: "Muller"}, "Anna Müller", true},
		{"empty query", Query{}, "Anna Müller", false},
		{"empty name", Query{Last: "Yu"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(tt.fullName); got != tt.want {
				t.Errorf("Query%+v.Matches(%q) = %v, want %v", tt.query, tt.fullName, got, tt.want)
			}
		})
	}
}

func TestAllMatch(t *testing.T) {
	names := []string{"Jesse D Bloom", "Yujia Alina Chan", "Timothy C Yu"}

	tests := []struct {
		name    string
		queries []Query
		want    bool
	}{
		{"both authors match", []Query{{Last: "Bloom"}, {Last: "Yu"}}, true},
		{"one author missing", []Query{{Last: "Bloom"}, {Last: "Smith"}}, false},
		{"empty queries matches all", []Query{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllMatch(tt.queries, names); got != tt.want {
				t.Errorf("AllMatch(%+v) = %v, want %v", tt.queries, got, tt.want)
			}
		})
	}
}
