package parser

import (
	"testing"
)

func TestParseCitation(t *testing.T) {
	tests := []struct {
		in   string
		want Citation
	}{
		{"Homo sapiens Linnaeus, 1758", Citation{Literal: "Homo sapiens", Authority: "Linnaeus", Year: "1758"}},
		{"Panthera leo (Linnaeus, 1758)", Citation{Literal: "Panthera leo", Authority: "Linnaeus", Year: "1758", Parenthesized: true}},
		{"Rosa canina var. dumalis Baker", Citation{Literal: "Rosa canina var. dumalis", Authority: "Baker"}},
		{"Canis  lupus", Citation{Literal: "Canis lupus"}},
		{"Felis catus 1758", Citation{Literal: "Felis catus", Year: "1758"}},
		{"lowercase start", Citation{Literal: "lowercase start"}},
	}
	for _, tt := range tests {
		got := ParseCitation(tt.in)
		if got != tt.want {
			t.Errorf("ParseCitation(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestCitation_String(t *testing.T) {
	for _, in := range []string{
		"Homo sapiens Linnaeus, 1758",
		"Panthera leo (Linnaeus, 1758)",
		"Canis lupus",
	} {
		if got := ParseCitation(in).String(); got != in {
			t.Errorf("round trip %q = %q", in, got)
		}
	}
}

func TestParsePath(t *testing.T) {
	got := ParsePath(" Animalia >Chordata>  > Mammalia ")
	want := []string{"Animalia", "Chordata", "Mammalia"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if JoinPath(got) != "Animalia > Chordata > Mammalia" {
		t.Errorf("JoinPath = %q", JoinPath(got))
	}
	if ParsePath("") != nil {
		t.Error("empty path should yield nil")
	}
}
