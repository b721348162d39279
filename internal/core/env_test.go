package core

import (
	"reflect"
	"testing"
)

func TestComposeEnvLayering(t *testing.T) {
	base := map[string]string{"A": "1"}
	job := map[string]string{"B": "2"}
	step := map[string]string{"A": "9", "C": "3"}

	got := ComposeEnv(base, job, step)
	want := map[string]string{"A": "9", "B": "2", "C": "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ComposeEnv = %v, want %v", got, want)
	}
}

func TestComposeEnvDoesNotMutateInputs(t *testing.T) {
	base := map[string]string{"A": "1"}
	step := map[string]string{"A": "9"}

	ComposeEnv(base, step)
	if base["A"] != "1" {
		t.Errorf("base layer mutated: %v", base)
	}

	// Two compositions must be independent maps.
	first := ComposeEnv(base)
	second := ComposeEnv(base)
	first["A"] = "changed"
	if second["A"] != "1" {
		t.Errorf("compositions share state: %v", second)
	}
}

func TestComposeEnvNilLayers(t *testing.T) {
	got := ComposeEnv(nil, map[string]string{"A": "1"}, nil)
	if got["A"] != "1" || len(got) != 1 {
		t.Errorf("ComposeEnv with nil layers = %v", got)
	}
}
