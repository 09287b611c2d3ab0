package gpsl

import (
	"strings"
	"testing"
)

func parseErr(t *testing.T, src string) error {
	t.Helper()
	_, err := ParseProgram(strings.NewReader(src))
	if err == nil {
		t.Fatalf("want parse error, got none\nsource:\n%s", src)
	}
	return err
}

func TestParseFunctionTable(t *testing.T) {
	prog := mustParse(t, `
fn main() {
	helper(1, 2);
}
fn helper(a, b) {
	return a;
}`)
	if len(prog.Functions) != 2 {
		t.Fatalf("want 2 functions, got %d", len(prog.Functions))
	}

	helper := prog.Functions["helper"]
	if helper == nil {
		t.Fatal("helper missing from function table")
	}
	if len(helper.params) != 2 || helper.params[0] != "a" || helper.params[1] != "b" {
		t.Fatalf("bad parameter list: %v", helper.params)
	}
	if len(helper.body) != 1 {
		t.Fatalf("want 1 body statement, got %d", len(helper.body))
	}
}

func TestParseDuplicateFunctionName(t *testing.T) {
	err := parseErr(t, `
fn main() { }
fn main() { }`)
	wantReason(t, err, ErrSyntax)
}

func TestParsePermissionAnnotation(t *testing.T) {
	prog := mustParse(t, `
fn main() {
	accept("Network", "FileRead") reject("Exec") {
		return 1;
	}
}`)

	block, isBlock := prog.Functions["main"].body[0].(BlockNode)
	if !isBlock {
		t.Fatalf("want a block statement, got %s", prog.Functions["main"].body[0])
	}
	if block.annot == nil {
		t.Fatal("annotation missing from block")
	}
	if !samePermissions(block.annot.Accept, []Permission{Network, FileRead}) {
		t.Fatalf("bad accept set: %v", block.annot.Accept)
	}
	if !samePermissions(block.annot.Reject, []Permission{Exec}) {
		t.Fatalf("bad reject set: %v", block.annot.Reject)
	}
}

func TestParseRejectOnlyAnnotation(t *testing.T) {
	prog := mustParse(t, `
fn main() {
	reject("Administrator") {
	}
}`)
	block := prog.Functions["main"].body[0].(BlockNode)
	if block.annot == nil {
		t.Fatal("annotation missing from block")
	}
	if len(block.annot.Accept) != 0 {
		t.Fatalf("reject-only annotation carries accepts: %v", block.annot.Accept)
	}
	if !samePermissions(block.annot.Reject, []Permission{Administrator}) {
		t.Fatalf("bad reject set: %v", block.annot.Reject)
	}
}

func TestParseUnknownPermissionFailsAtLoad(t *testing.T) {
	err := parseErr(t, `
fn main() {
	accept("Teleport") {
	}
}`)
	wantReason(t, err, ErrUnknownPermission)
}

func TestParseForHeaderSectionsMayBeEmpty(t *testing.T) {
	prog := mustParse(t, `
fn main() {
	for (;;) {
		return 1;
	}
}`)
	loop, isFor := prog.Functions["main"].body[0].(ForNode)
	if !isFor {
		t.Fatalf("want a for statement, got %s", prog.Functions["main"].body[0])
	}
	if loop.init != nil || loop.condition != nil || loop.update != nil {
		t.Fatalf("empty header sections parsed non-nil: %s", loop)
	}
}

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 == 7 groups as ((1 + (2 * 3)) == 7)
	prog := mustParse(t, "fn main() { return 1 + 2 * 3 == 7; }")
	ret := prog.Functions["main"].body[0].(ReturnNode)

	eq, isBinary := ret.expr.(BinaryExprNode)
	if !isBinary || eq.operator != EqualOp {
		t.Fatalf("want == at the root, got %s", ret.expr)
	}
	add, isBinary := eq.leftOperand.(BinaryExprNode)
	if !isBinary || add.operator != AddOp {
		t.Fatalf("want + under ==, got %s", eq.leftOperand)
	}
	mul, isBinary := add.rightOperand.(BinaryExprNode)
	if !isBinary || mul.operator != MultiplyOp {
		t.Fatalf("want * under +, got %s", add.rightOperand)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	cases := []string{
		"fn main() {",                  // unterminated body
		"fn main() { return 1 }",       // missing separator
		"fn main() { let x num; }",     // missing colon
		"fn main() { if 1 return; }",   // missing parens
		"fn () { }",                    // missing function name
		"main() { }",                   // missing fn keyword
		"fn main() { 1 + ; }",          // dangling operator
		`fn main() { accept(Net) {} }`, // permission name must be a text literal
	}
	for _, src := range cases {
		wantReason(t, parseErr(t, src), ErrSyntax)
	}
}

func TestNodeStrings(t *testing.T) {
	prog := mustParse(t, `
fn main() {
	let x: num;
	x = 1 + 2;
	print("hi", x);
}`)
	body := prog.Functions["main"].body

	cases := []struct {
		node Node
		want string
	}{
		{body[0], "Define x: num"},
		{body[1], "Binary (Variable 'x') '=' (Binary (Number 1) '+' (Number 2))"},
		{body[2], `Call (print) on (Text "hi", Variable 'x')`},
	}
	for _, c := range cases {
		if got := c.node.String(); got != c.want {
			t.Fatalf("want %q, got %q", c.want, got)
		}
	}
}
