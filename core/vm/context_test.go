package vm

import "testing"

func TestCallSchemeString(t *testing.T) {
	tests := []struct {
		scheme CallScheme
		want   string
	}{
		{CallSchemeCall, "CALL"},
		{CallSchemeCallCode, "CALLCODE"},
		{CallSchemeDelegateCall, "DELEGATECALL"},
		{CallSchemeStaticCall, "STATICCALL"},
		{CallScheme(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.scheme.String(); got != tt.want {
			t.Errorf("CallScheme(%d).String() = %q, want %q", tt.scheme, got, tt.want)
		}
	}
}

func TestContextCarriesIsStatic(t *testing.T) {
	ctx := Context{ApparentValue: NewWord()}
	rt := NewRuntime(nil, nil, ctx, true, 0)
	if !rt.Context().IsStatic {
		t.Error("Context().IsStatic = false, want true when Runtime constructed with isStatic=true")
	}
	if !rt.IsStatic() {
		t.Error("IsStatic() = false, want true")
	}
}
