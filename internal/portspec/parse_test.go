package portspec

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	cases := map[string][]int{
		"22":              {22},
		"22,80":           {22, 80},
		"80,22":           {22, 80},
		"1-3":             {1, 2, 3},
		" 443 , 22 ":      {22, 443},
		"22,80,8000-8002": {22, 80, 8000, 8001, 8002},
		"5-7,6,7-8":       {5, 6, 7, 8},
		"65535":           {65535},
	}
	for spec, want := range cases {
		t.Run(spec, func(t *testing.T) {
			got, err := Parse(spec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %v want %v", got, want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",        // empty
		"0",       // invalid port
		"65536",   // invalid port
		"10-1",    // reversed range
		"abc",     // bad token
		"22,",     // empty token
		"1-70000", // out of range in range
		"-5",      // missing start
		"5-",      // missing end
	}
	for _, spec := range cases {
		t.Run(spec, func(t *testing.T) {
			_, err := Parse(spec)
			if !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("expected ErrInvalidSpec for %q, got %v", spec, err)
			}
		})
	}
}

func TestRange(t *testing.T) {
	got, err := Range(1, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1024 || got[0] != 1 || got[1023] != 1024 {
		t.Fatalf("unexpected range: len=%d", len(got))
	}
	if _, err := Range(100, 1); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
}
