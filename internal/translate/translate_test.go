package translate

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
)

type fakeEngine struct {
	out   string
	err   error
	panic bool
	calls int
}

func (f *fakeEngine) Translate(ctx context.Context, text, from, to string) (string, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.out, f.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestGatewayTranslate(t *testing.T) {
	tests := []struct {
		name      string
		engine    *fakeEngine
		req       Request
		want      string
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "success",
			engine:    &fakeEngine{out: "  hola  "},
			req:       NewRequest("hello", "en-US", "es-ES"),
			want:      "hola",
			wantCalls: 1,
		},
		{
			name:      "engine error becomes empty",
			engine:    &fakeEngine{err: errors.New("rate limited")},
			req:       NewRequest("hello", "en-US", "es-ES"),
			want:      "",
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "engine panic becomes empty",
			engine:    &fakeEngine{panic: true},
			req:       NewRequest("hello", "en-US", "es-ES"),
			want:      "",
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "same language skips engine",
			engine:    &fakeEngine{out: "hello"},
			req:       NewRequest("hello", "en-US", "en-GB"),
			want:      "",
			wantCalls: 0,
		},
		{
			name:      "blank text skips engine",
			engine:    &fakeEngine{out: "x"},
			req:       NewRequest("   ", "en-US", "es-ES"),
			want:      "",
			wantCalls: 0,
		},
		{
			name:      "engine returns empty",
			engine:    &fakeEngine{out: ""},
			req:       NewRequest("hmm", "en-US", "es-ES"),
			want:      "",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(tt.engine, discardLogger())
			res := g.Translate(context.Background(), tt.req)
			if res.Translation != tt.want {
				t.Errorf("Translation = %q, want %q", res.Translation, tt.want)
			}
			if (res.Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", res.Err, tt.wantErr)
			}
			if tt.engine.calls != tt.wantCalls {
				t.Errorf("engine calls = %d, want %d", tt.engine.calls, tt.wantCalls)
			}
			if res.ID != tt.req.ID {
				t.Errorf("ID = %q, want %q", res.ID, tt.req.ID)
			}
		})
	}
}

func TestGatewayNilEngine(t *testing.T) {
	g := NewGateway(nil, discardLogger())
	res := g.Translate(context.Background(), NewRequest("hello", "en-US", "es-ES"))
	if res.Translation != "" {
		t.Errorf("Translation = %q, want empty", res.Translation)
	}
}

func TestNewRequestIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRequest("x", "en", "es").ID
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty request ID %q", id)
		}
		seen[id] = true
	}
}

func TestSameLanguage(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"en-US", "en-US", true},
		{"en-US", "en-GB", true},
		{"en-US", "es-ES", false},
		{"ta-IN", "te-IN", false},
		{"hi-IN", "hi", true},
		{"not a tag", "NOT A TAG", true},
		{"not a tag", "en-US", false},
	}
	for _, tt := range tests {
		if got := SameLanguage(tt.a, tt.b); got != tt.want {
			t.Errorf("SameLanguage(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"ta-IN", "Tamil"},
		{"vi-VN", "Vietnamese"},
		{"en-US", "English"},
		{"xx-invalid-!!", "xx-invalid-!!"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.tag); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
