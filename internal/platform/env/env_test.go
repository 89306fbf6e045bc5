package env

import (
	"testing"
	"time"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestString_Default(t *testing.T) {
	got := mapLookup(nil).String("ENV_STRING_DOES_NOT_EXIST", "fallback")
	if got != "fallback" {
		t.Fatalf("String()=%q, want fallback", got)
	}
}

func TestString_Override(t *testing.T) {
	got := mapLookup(map[string]string{"ENV_STRING_KEY": "value"}).String("ENV_STRING_KEY", "fallback")
	if got != "value" {
		t.Fatalf("String()=%q, want value", got)
	}
}

func TestString_NilReadsProcessEnv(t *testing.T) {
	t.Setenv("ENV_STRING_PROCESS", "from-os")
	var lookup LookupFunc
	if got := lookup.String("ENV_STRING_PROCESS", "fallback"); got != "from-os" {
		t.Fatalf("String()=%q, want from-os", got)
	}
}

func TestDuration_Override(t *testing.T) {
	got, err := mapLookup(map[string]string{"ENV_DURATION_KEY": "250ms"}).Duration("ENV_DURATION_KEY", 5*time.Second)
	if err != nil {
		t.Fatalf("Duration() err=%v", err)
	}
	if got != 250*time.Millisecond {
		t.Fatalf("Duration()=%v, want 250ms", got)
	}
}

func TestDuration_Invalid(t *testing.T) {
	_, err := mapLookup(map[string]string{"ENV_DURATION_KEY_INVALID": "not-a-duration"}).Duration("ENV_DURATION_KEY_INVALID", 5*time.Second)
	if err == nil {
		t.Fatalf("Duration() expected error")
	}
}

func TestBool_Override(t *testing.T) {
	got, err := mapLookup(map[string]string{"ENV_BOOL_KEY": "false"}).Bool("ENV_BOOL_KEY", true)
	if err != nil {
		t.Fatalf("Bool() err=%v", err)
	}
	if got != false {
		t.Fatalf("Bool()=%v, want false", got)
	}
}

func TestBool_Invalid(t *testing.T) {
	_, err := mapLookup(map[string]string{"ENV_BOOL_KEY_INVALID": "nope"}).Bool("ENV_BOOL_KEY_INVALID", false)
	if err == nil {
		t.Fatalf("Bool() expected error")
	}
}

func TestParam_BlankIsAbsent(t *testing.T) {
	lookup := mapLookup(map[string]string{"INPUT_BLANK": "   ", "INPUT_SET": "  demo \n"})
	if _, ok := Param(lookup, "INPUT_BLANK"); ok {
		t.Fatalf("Param() ok=true for blank value")
	}
	if _, ok := Param(lookup, "INPUT_MISSING"); ok {
		t.Fatalf("Param() ok=true for missing value")
	}
	got, ok := Param(lookup, "INPUT_SET")
	if !ok || got != "demo" {
		t.Fatalf("Param()=%q,%v, want demo,true", got, ok)
	}
}

func TestInt64Param(t *testing.T) {
	lookup := mapLookup(map[string]string{"DS": "123", "BAD": "x1"})
	got, err := Int64Param(lookup, "DS")
	if err != nil {
		t.Fatalf("Int64Param() err=%v", err)
	}
	if got == nil || *got != 123 {
		t.Fatalf("Int64Param()=%v, want 123", got)
	}
	got, err = Int64Param(lookup, "NONE")
	if err != nil || got != nil {
		t.Fatalf("Int64Param()=%v,%v, want nil,nil", got, err)
	}
	if _, err := Int64Param(lookup, "BAD"); err == nil {
		t.Fatalf("Int64Param() expected error")
	}
}
