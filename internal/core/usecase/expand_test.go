package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestExpandParsesStructuredOutput(t *testing.T) {
	gen := &fakeGenerator{invokeFn: func(string) (string, error) {
		return `{"rewrites":["current ozone levels in Fresno","Fresno ozone readings today","air quality index Fresno ozone"],"keywords":["ozone","levels","Fresno","air","quality","index"]}`, nil
	}}

	qc := NewExpander(gen).Expand(context.Background(), "what are the ozone levels in Fresno")
	if len(qc.Rewrites) != 3 {
		t.Fatalf("rewrites = %d, want 3", len(qc.Rewrites))
	}
	if len(qc.Keywords) != 6 {
		t.Fatalf("keywords = %d, want 6", len(qc.Keywords))
	}
	if qc.PrimaryRewrite() != "current ozone levels in Fresno" {
		t.Fatalf("PrimaryRewrite() = %q", qc.PrimaryRewrite())
	}
	if qc.Original != "what are the ozone levels in Fresno" {
		t.Fatalf("Original = %q", qc.Original)
	}
}

func TestExpandHandlesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{invokeFn: func(string) (string, error) {
		return "```json\n{\"rewrites\":[\"a\"],\"keywords\":[\"b\"]}\n```", nil
	}}

	qc := NewExpander(gen).Expand(context.Background(), "q")
	if !reflect.DeepEqual(qc.Rewrites, []string{"a"}) || !reflect.DeepEqual(qc.Keywords, []string{"b"}) {
		t.Fatalf("unexpected expansion: %+v", qc)
	}
}

func TestExpandFallsBackOnUnparsableOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"plain prose", "I cannot produce JSON for that.", nil},
		{"empty rewrites", `{"rewrites":[],"keywords":["ozone"]}`, nil},
		{"empty keywords", `{"rewrites":["ozone levels"],"keywords":[]}`, nil},
		{"model failure", "", errors.New("timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{invokeFn: func(string) (string, error) {
				return tt.response, tt.err
			}}

			qc := NewExpander(gen).Expand(context.Background(), "ozone levels")
			if !reflect.DeepEqual(qc.Rewrites, []string{"ozone levels"}) {
				t.Fatalf("fallback rewrites = %v", qc.Rewrites)
			}
			if !reflect.DeepEqual(qc.Keywords, []string{"ozone", "levels"}) {
				t.Fatalf("fallback keywords = %v", qc.Keywords)
			}
		})
	}
}
