package command

import "testing"

func TestParserParse(t *testing.T) {
	p := NewParser()

	res := p.Parse("  /Historial@clara 3 ")
	if !res.IsCommand {
		t.Fatalf("expected command")
	}
	if len(res.Tokens) != 2 || res.Tokens[0] != "historial" || res.Tokens[1] != "3" {
		t.Fatalf("unexpected tokens: %v", res.Tokens)
	}
	if res.ArgumentRaw != "3" {
		t.Fatalf("unexpected argument raw: %q", res.ArgumentRaw)
	}

	for _, text := range []string{"", "   ", "hola", "/", "a/b"} {
		if p.Parse(text).IsCommand {
			t.Fatalf("%q should not parse as a command", text)
		}
	}
}

func TestParserCustomPrefix(t *testing.T) {
	p := Parser{Prefix: "!"}
	if !p.Parse("!ping").IsCommand || p.Parse("/ping").IsCommand {
		t.Fatalf("custom prefix not honoured")
	}
}
