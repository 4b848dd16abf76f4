package sharing

import "testing"

func TestParseCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    map[string]string
		wantErr bool
	}{
		{"empty", "", map[string]string{}, false},
		{"single", "responseformat=delta", map[string]string{"responseformat": "delta"}, false},
		{
			"multiple",
			"responseformat=delta;readerfeatures=deletionvectors,columnmapping",
			map[string]string{
				"responseformat": "delta",
				"readerfeatures": "deletionvectors,columnmapping",
			},
			false,
		},
		{
			"whitespace",
			" responseformat = parquet ; includeendstreamaction = true ",
			map[string]string{
				"responseformat":         "parquet",
				"includeendstreamaction": "true",
			},
			false,
		},
		{"missing equals", "responseformat", nil, true},
		{"bare semicolon entry", "responseformat=delta;junk", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCapabilities(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCapabilities: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("key %q: got %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestFormatCapabilitiesDeterministic(t *testing.T) {
	caps := map[string]string{
		"responseformat": "delta",
		"readerfeatures": "deletionvectors",
	}
	want := "readerfeatures=deletionvectors;responseformat=delta"
	for i := 0; i < 5; i++ {
		if got := FormatCapabilities(caps); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestCapabilitiesRoundTrip(t *testing.T) {
	header := "readerfeatures=deletionvectors;responseformat=delta"
	caps, err := ParseCapabilities(header)
	if err != nil {
		t.Fatalf("ParseCapabilities: %v", err)
	}
	if got := FormatCapabilities(caps); got != header {
		t.Errorf("round trip got %q, want %q", got, header)
	}
}
