package gpsl

import (
	"strings"
	"testing"
)

func tokenize(t *testing.T, src string) []Tok {
	t.Helper()
	tokens, err := Tokenize(strings.NewReader(src))
	if err != nil {
		t.Fatalf("tokenize error: %v\nsource:\n%s", err, src)
	}
	return tokens
}

func wantKinds(t *testing.T, tokens []Tok, kinds ...Kind) {
	t.Helper()
	if len(tokens) != len(kinds) {
		t.Fatalf("want %d tokens, got %d: %v", len(kinds), len(tokens), tokens)
	}
	for i, kind := range kinds {
		if tokens[i].kind != kind {
			t.Fatalf("token %d: want %s, got %s", i, kind, tokens[i])
		}
	}
}

func TestTokenizeStatement(t *testing.T) {
	tokens := tokenize(t, "let count: num;")
	wantKinds(t, tokens, LetKeyword, Identifier, Colon, Identifier, Separator)
	if tokens[1].str != "count" || tokens[3].str != "num" {
		t.Fatalf("bad identifier payloads: %v", tokens)
	}
}

func TestTokenizeOperators(t *testing.T) {
	tokens := tokenize(t, "a = a + 1 - 2 * 3 / 4; a == b; a != b; a < b; a <= b;")
	wantKinds(t, tokens,
		Identifier, AssignOp, Identifier, AddOp, NumberLiteral, SubtractOp,
		NumberLiteral, MultiplyOp, NumberLiteral, DivideOp, NumberLiteral, Separator,
		Identifier, EqualOp, Identifier, Separator,
		Identifier, NotEqualOp, Identifier, Separator,
		Identifier, LessThanOp, Identifier, Separator,
		Identifier, LessEqOp, Identifier, Separator,
	)
}

func TestTokenizeKeywordsAndIdentifiers(t *testing.T) {
	tokens := tokenize(t, "fn if else while for accept reject forward ifs")
	wantKinds(t, tokens,
		FnKeyword, IfKeyword, ElseKeyword, WhileKeyword, ForKeyword,
		AcceptKeyword, RejectKeyword, Identifier, Identifier,
	)
	if tokens[7].str != "forward" || tokens[8].str != "ifs" {
		t.Fatalf("keyword prefixes leaked into identifiers: %v", tokens)
	}
}

func TestTokenizeNumberLiteral(t *testing.T) {
	tokens := tokenize(t, "18446744073709551615")
	wantKinds(t, tokens, NumberLiteral)
	if tokens[0].num != 18446744073709551615 {
		t.Fatalf("want max uint64, got %d", tokens[0].num)
	}

	_, err := Tokenize(strings.NewReader("18446744073709551616"))
	wantReason(t, err, ErrSyntax)
}

func TestTokenizeTextLiteral(t *testing.T) {
	tokens := tokenize(t, `"hello" "a\nb\t\"c\"\\"`)
	wantKinds(t, tokens, TextLiteral, TextLiteral)
	if tokens[0].str != "hello" {
		t.Fatalf("got %q", tokens[0].str)
	}
	if tokens[1].str != "a\nb\t\"c\"\\" {
		t.Fatalf("bad escape decoding: %q", tokens[1].str)
	}
}

func TestTokenizeUnterminatedText(t *testing.T) {
	_, err := Tokenize(strings.NewReader(`"no closing quote`))
	wantReason(t, err, ErrSyntax)
}

func TestTokenizeUnknownEscape(t *testing.T) {
	_, err := Tokenize(strings.NewReader(`"\q"`))
	wantReason(t, err, ErrSyntax)
}

func TestTokenizeCommentsDiscarded(t *testing.T) {
	tokens := tokenize(t, `
// leading comment
let x: num; // trailing comment
// 1 + "not tokens"
`)
	wantKinds(t, tokens, LetKeyword, Identifier, Colon, Identifier, Separator)
}

func TestTokenizeUnexpectedCharacter(t *testing.T) {
	_, err := Tokenize(strings.NewReader("let x @ 1;"))
	wantReason(t, err, ErrSyntax)

	// a lone ! is not an operator
	_, err = Tokenize(strings.NewReader("!x"))
	wantReason(t, err, ErrSyntax)
}

func TestTokenPositions(t *testing.T) {
	tokens := tokenize(t, "fn main() {\n\treturn 1;\n}")

	cases := []struct {
		idx       int
		line, col int
	}{
		{0, 1, 1},  // fn
		{1, 1, 4},  // main
		{2, 1, 8},  // (
		{5, 2, 2},  // return
		{6, 2, 9},  // 1
		{8, 3, 1},  // }
	}
	for _, c := range cases {
		pos := tokens[c.idx].position
		if pos.line != c.line || pos.col != c.col {
			t.Fatalf("token %d (%s): want %d:%d, got %s",
				c.idx, tokens[c.idx], c.line, c.col, pos)
		}
	}
}
