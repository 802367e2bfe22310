package registry

import "testing"

func TestTokenize_WhitespaceSplitting(t *testing.T) {
	got := Tokenize(`run  path/to/script.txt`)
	want := []string{"run", "path/to/script.txt"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTokenize_QuoteGrouping(t *testing.T) {
	got := Tokenize(`say "hello world"`)
	want := []string{"say", "hello world"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTokenize_EmptyQuotedArg(t *testing.T) {
	got := Tokenize(`set "" value`)
	want := []string{"set", "", "value"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRegistry_RejectsDuplicateNames(t *testing.T) {
	r := New()
	h := Handler{Name: "echo", Execute: func(args []string, env map[string]string) (Output, error) {
		return NoneOutput(), nil
	}}
	if err := r.Register(h); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(h); err == nil {
		t.Fatalf("expected error on duplicate registration")
	}
}

func TestRegistry_DispatchUnknownCommand(t *testing.T) {
	r := New()
	if _, err := r.Dispatch("nope", nil); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestRegistry_DispatchRunsHandlerWithArgs(t *testing.T) {
	r := New()
	var seen []string
	_ = r.Register(Handler{
		Name: "echo",
		Execute: func(args []string, env map[string]string) (Output, error) {
			seen = args
			return TextOutput("ok"), nil
		},
	})
	out, err := r.Dispatch(`echo "a b" c`, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Text != "ok" {
		t.Fatalf("text = %q", out.Text)
	}
	if len(seen) != 2 || seen[0] != "a b" || seen[1] != "c" {
		t.Fatalf("args = %v", seen)
	}
}
