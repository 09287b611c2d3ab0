package gpsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Node represents an abstract syntax tree (AST) node in a GPSL program.
type Node interface {
	String() string
	Position() position
	Eval(rt *Runtime) (Value, error)
}

// a string representation of the Position of a given node,
//	appropriate for an error message
func poss(n Node) string {
	return n.Position().String()
}

type NumberLiteralNode struct {
	val uint64
	position
}

func (n NumberLiteralNode) String() string {
	return fmt.Sprintf("Number %d", n.val)
}

func (n NumberLiteralNode) Position() position {
	return n.position
}

type TextLiteralNode struct {
	val string
	position
}

func (n TextLiteralNode) String() string {
	return fmt.Sprintf("Text %s", strconv.Quote(n.val))
}

func (n TextLiteralNode) Position() position {
	return n.position
}

type VariableRefNode struct {
	name string
	position
}

func (n VariableRefNode) String() string {
	return fmt.Sprintf("Variable '%s'", n.name)
}

func (n VariableRefNode) Position() position {
	return n.position
}

type BinaryExprNode struct {
	operator     Kind
	leftOperand  Node
	rightOperand Node
	position
}

func (n BinaryExprNode) String() string {
	return fmt.Sprintf("Binary (%s) %s (%s)", n.leftOperand, n.operator, n.rightOperand)
}

func (n BinaryExprNode) Position() position {
	return n.position
}

type CallNode struct {
	name      string
	arguments []Node
	position
}

func (n CallNode) String() string {
	args := make([]string, len(n.arguments))
	for i, a := range n.arguments {
		args[i] = a.String()
	}
	return fmt.Sprintf("Call (%s) on (%s)", n.name, strings.Join(args, ", "))
}

func (n CallNode) Position() position {
	return n.position
}

type ReturnNode struct {
	expr Node
	position
}

func (n ReturnNode) String() string {
	return fmt.Sprintf("Return (%s)", n.expr)
}

func (n ReturnNode) Position() position {
	return n.position
}

type IfNode struct {
	condition Node
	then      Node
	elseStmt  Node // nil when the if carries no else branch
	position
}

func (n IfNode) String() string {
	if n.elseStmt == nil {
		return fmt.Sprintf("If (%s) then (%s)", n.condition, n.then)
	}
	return fmt.Sprintf("If (%s) then (%s) else (%s)", n.condition, n.then, n.elseStmt)
}

func (n IfNode) Position() position {
	return n.position
}

type WhileNode struct {
	condition Node
	body      Node
	position
}

func (n WhileNode) String() string {
	return fmt.Sprintf("While (%s) do (%s)", n.condition, n.body)
}

func (n WhileNode) Position() position {
	return n.position
}

type ForNode struct {
	init      Node // any may be nil
	condition Node
	update    Node
	body      Node
	position
}

func (n ForNode) String() string {
	part := func(h Node) string {
		if h == nil {
			return ""
		}
		return h.String()
	}
	return fmt.Sprintf("For (%s; %s; %s) do (%s)",
		part(n.init), part(n.condition), part(n.update), n.body)
}

func (n ForNode) Position() position {
	return n.position
}

// PermissionAnnotation is the accept/reject pair a script attaches to a
// block. When present it fully replaces the block's inherited pair;
// the two are never merged.
type PermissionAnnotation struct {
	Accept []Permission
	Reject []Permission
}

func (a PermissionAnnotation) String() string {
	accept := make([]string, len(a.Accept))
	for i, p := range a.Accept {
		accept[i] = p.String()
	}
	reject := make([]string, len(a.Reject))
	for i, p := range a.Reject {
		reject[i] = p.String()
	}
	return fmt.Sprintf("accept [%s] reject [%s]",
		strings.Join(accept, ", "), strings.Join(reject, ", "))
}

type BlockNode struct {
	statements []Node
	annot      *PermissionAnnotation // nil when the block is unannotated
	position
}

func (n BlockNode) String() string {
	stmts := make([]string, len(n.statements))
	for i, s := range n.statements {
		stmts[i] = s.String()
	}
	if n.annot == nil {
		return fmt.Sprintf("Block {%s}", strings.Join(stmts, ", "))
	}
	return fmt.Sprintf("Block %s {%s}", n.annot, strings.Join(stmts, ", "))
}

func (n BlockNode) Position() position {
	return n.position
}

type DefineNode struct {
	name     string
	typeName string
	position
}

func (n DefineNode) String() string {
	return fmt.Sprintf("Define %s: %s", n.name, n.typeName)
}

func (n DefineNode) Position() position {
	return n.position
}

type FunctionNode struct {
	name   string
	params []string
	body   []Node
	position
}

func (n FunctionNode) String() string {
	stmts := make([]string, len(n.body))
	for i, s := range n.body {
		stmts[i] = s.String()
	}
	return fmt.Sprintf("Function %s(%s) {%s}",
		n.name, strings.Join(n.params, ", "), strings.Join(stmts, ", "))
}

func (n FunctionNode) Position() position {
	return n.position
}

// Program is the immutable representation the runtime executes: the
// table of script functions keyed by name. Names are unique, enforced
// at load time.
type Program struct {
	Functions map[string]*FunctionNode
}

func guardUnexpectedInputEnd(tokens []Tok, idx int) error {
	if idx >= len(tokens) {
		if len(tokens) > 0 {
			return Err{
				ErrSyntax,
				fmt.Sprintf("unexpected end of input at %s", tokens[len(tokens)-1]),
			}
		}

		return Err{
			ErrSyntax,
			"unexpected end of input",
		}
	}

	return nil
}

func expectTok(tokens []Tok, idx int, kind Kind) error {
	if err := guardUnexpectedInputEnd(tokens, idx); err != nil {
		return err
	}
	if tokens[idx].kind != kind {
		return Err{
			ErrSyntax,
			fmt.Sprintf("expected %s, found %s", kind, tokens[idx]),
		}
	}
	return nil
}

// ParseProgram tokenizes and parses GPSL source from input, producing
// the function table the runtime executes.
func ParseProgram(input io.Reader) (*Program, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// Parse transforms a token slice into a Program.
//	This implementation uses recursive descent parsing.
func Parse(tokens []Tok) (*Program, error) {
	prog := &Program{Functions: make(map[string]*FunctionNode)}

	idx, length := 0, len(tokens)
	for idx < length {
		fn, incr, err := parseFunction(tokens[idx:])
		if err != nil {
			return nil, err
		}
		idx += incr

		if _, defined := prog.Functions[fn.name]; defined {
			return nil, Err{
				ErrSyntax,
				fmt.Sprintf("function %s is defined more than once [%s]",
					fn.name, fn.position),
			}
		}
		prog.Functions[fn.name] = fn
	}

	return prog, nil
}

func parseFunction(tokens []Tok) (*FunctionNode, int, error) {
	if err := expectTok(tokens, 0, FnKeyword); err != nil {
		return nil, 0, err
	}
	if err := expectTok(tokens, 1, Identifier); err != nil {
		return nil, 0, err
	}
	name := tokens[1]

	idx := 2
	if err := expectTok(tokens, idx, LeftParen); err != nil {
		return nil, 0, err
	}
	idx++

	params := make([]string, 0)
	for {
		if err := guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind == RightParen {
			break
		}
		if err := expectTok(tokens, idx, Identifier); err != nil {
			return nil, 0, err
		}
		params = append(params, tokens[idx].str)
		idx++

		if err := guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind == Comma {
			idx++
		} else if tokens[idx].kind != RightParen {
			return nil, 0, Err{
				ErrSyntax,
				fmt.Sprintf("expected %s or %s in parameter list, found %s",
					Comma, RightParen, tokens[idx]),
			}
		}
	}
	idx++ // RightParen

	if err := expectTok(tokens, idx, LeftBrace); err != nil {
		return nil, 0, err
	}
	idx++

	body := make([]Node, 0)
	for {
		if err := guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind == RightBrace {
			break
		}

		stmt, incr, err := parseStatement(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr
		body = append(body, stmt)
	}
	idx++ // RightBrace

	return &FunctionNode{
		name:     name.str,
		params:   params,
		body:     body,
		position: tokens[0].position,
	}, idx, nil
}

func parseStatement(tokens []Tok) (Node, int, error) {
	if err := guardUnexpectedInputEnd(tokens, 0); err != nil {
		return nil, 0, err
	}

	switch tokens[0].kind {
	case LetKeyword:
		if err := expectTok(tokens, 1, Identifier); err != nil {
			return nil, 0, err
		}
		if err := expectTok(tokens, 2, Colon); err != nil {
			return nil, 0, err
		}
		if err := expectTok(tokens, 3, Identifier); err != nil {
			return nil, 0, err
		}
		if err := expectTok(tokens, 4, Separator); err != nil {
			return nil, 0, err
		}
		return DefineNode{
			name:     tokens[1].str,
			typeName: tokens[3].str,
			position: tokens[0].position,
		}, 5, nil

	case ReturnKeyword:
		expr, incr, err := parseExpression(tokens[1:])
		if err != nil {
			return nil, 0, err
		}
		idx := 1 + incr
		if err := expectTok(tokens, idx, Separator); err != nil {
			return nil, 0, err
		}
		idx++
		return ReturnNode{
			expr:     expr,
			position: tokens[0].position,
		}, idx, nil

	case IfKeyword:
		if err := expectTok(tokens, 1, LeftParen); err != nil {
			return nil, 0, err
		}
		idx := 2

		condition, incr, err := parseExpression(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr

		if err := expectTok(tokens, idx, RightParen); err != nil {
			return nil, 0, err
		}
		idx++

		then, incr, err := parseStatement(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr

		var elseStmt Node
		if idx < len(tokens) && tokens[idx].kind == ElseKeyword {
			idx++
			elseStmt, incr, err = parseStatement(tokens[idx:])
			if err != nil {
				return nil, 0, err
			}
			idx += incr
		}

		return IfNode{
			condition: condition,
			then:      then,
			elseStmt:  elseStmt,
			position:  tokens[0].position,
		}, idx, nil

	case WhileKeyword:
		if err := expectTok(tokens, 1, LeftParen); err != nil {
			return nil, 0, err
		}
		idx := 2

		condition, incr, err := parseExpression(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr

		if err := expectTok(tokens, idx, RightParen); err != nil {
			return nil, 0, err
		}
		idx++

		body, incr, err := parseStatement(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr

		return WhileNode{
			condition: condition,
			body:      body,
			position:  tokens[0].position,
		}, idx, nil

	case ForKeyword:
		if err := expectTok(tokens, 1, LeftParen); err != nil {
			return nil, 0, err
		}
		idx := 2

		var init, condition, update Node
		var incr int
		var err error

		if err = guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind != Separator {
			init, incr, err = parseSimple(tokens[idx:])
			if err != nil {
				return nil, 0, err
			}
			idx += incr
		}
		if err = expectTok(tokens, idx, Separator); err != nil {
			return nil, 0, err
		}
		idx++

		if err = guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind != Separator {
			condition, incr, err = parseExpression(tokens[idx:])
			if err != nil {
				return nil, 0, err
			}
			idx += incr
		}
		if err = expectTok(tokens, idx, Separator); err != nil {
			return nil, 0, err
		}
		idx++

		if err = guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind != RightParen {
			update, incr, err = parseSimple(tokens[idx:])
			if err != nil {
				return nil, 0, err
			}
			idx += incr
		}
		if err = expectTok(tokens, idx, RightParen); err != nil {
			return nil, 0, err
		}
		idx++

		body, incr, err := parseStatement(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr

		return ForNode{
			init:      init,
			condition: condition,
			update:    update,
			body:      body,
			position:  tokens[0].position,
		}, idx, nil

	case LeftBrace, AcceptKeyword, RejectKeyword:
		return parseBlock(tokens)

	default:
		stmt, incr, err := parseSimple(tokens)
		if err != nil {
			return nil, 0, err
		}
		idx := incr
		if err := expectTok(tokens, idx, Separator); err != nil {
			return nil, 0, err
		}
		idx++
		return stmt, idx, nil
	}
}

// parseSimple parses an assignment or a bare expression: the statement
// forms legal in for-loop init/update positions, without a trailing
// separator.
func parseSimple(tokens []Tok) (Node, int, error) {
	if err := guardUnexpectedInputEnd(tokens, 0); err != nil {
		return nil, 0, err
	}

	if tokens[0].kind == Identifier &&
		len(tokens) > 1 && tokens[1].kind == AssignOp {
		right, incr, err := parseExpression(tokens[2:])
		if err != nil {
			return nil, 0, err
		}
		return BinaryExprNode{
			operator: AssignOp,
			leftOperand: VariableRefNode{
				name:     tokens[0].str,
				position: tokens[0].position,
			},
			rightOperand: right,
			position:     tokens[1].position,
		}, 2 + incr, nil
	}

	return parseExpression(tokens)
}

func parseBlock(tokens []Tok) (Node, int, error) {
	idx := 0

	var annot *PermissionAnnotation
	if tokens[0].kind == AcceptKeyword || tokens[0].kind == RejectKeyword {
		annot = &PermissionAnnotation{}

		if tokens[idx].kind == AcceptKeyword {
			idx++
			perms, incr, err := parsePermissionList(tokens[idx:])
			if err != nil {
				return nil, 0, err
			}
			annot.Accept = perms
			idx += incr
		}

		if idx < len(tokens) && tokens[idx].kind == RejectKeyword {
			idx++
			perms, incr, err := parsePermissionList(tokens[idx:])
			if err != nil {
				return nil, 0, err
			}
			annot.Reject = perms
			idx += incr
		}
	}

	if err := expectTok(tokens, idx, LeftBrace); err != nil {
		return nil, 0, err
	}
	idx++

	statements := make([]Node, 0)
	for {
		if err := guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind == RightBrace {
			break
		}

		stmt, incr, err := parseStatement(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr
		statements = append(statements, stmt)
	}
	idx++ // RightBrace

	return BlockNode{
		statements: statements,
		annot:      annot,
		position:   tokens[0].position,
	}, idx, nil
}

// parsePermissionList parses the parenthesized list of permission name
// literals following an accept or reject keyword. Unknown permission
// names fail here, at load time.
func parsePermissionList(tokens []Tok) ([]Permission, int, error) {
	if err := expectTok(tokens, 0, LeftParen); err != nil {
		return nil, 0, err
	}
	idx := 1

	perms := make([]Permission, 0)
	for {
		if err := guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind == RightParen {
			break
		}
		if err := expectTok(tokens, idx, TextLiteral); err != nil {
			return nil, 0, err
		}

		perm, err := ParsePermission(tokens[idx].str)
		if err != nil {
			if e, isErr := err.(Err); isErr {
				return nil, 0, Err{
					e.reason,
					fmt.Sprintf("%s [%s]", e.message, tokens[idx].position),
				}
			}
			return nil, 0, err
		}
		perms = append(perms, perm)
		idx++

		if err := guardUnexpectedInputEnd(tokens, idx); err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind == Comma {
			idx++
		} else if tokens[idx].kind != RightParen {
			return nil, 0, Err{
				ErrSyntax,
				fmt.Sprintf("expected %s or %s in permission list, found %s",
					Comma, RightParen, tokens[idx]),
			}
		}
	}
	idx++ // RightParen

	return perms, idx, nil
}

func getOpPriority(t Tok) int {
	// higher == greater priority
	switch t.kind {
	case MultiplyOp, DivideOp:
		return 50
	case AddOp, SubtractOp:
		return 40
	case LessThanOp, LessEqOp:
		return 30
	case EqualOp, NotEqualOp:
		return 20
	default:
		return -1
	}
}

func isBinaryOp(t Tok) bool {
	return getOpPriority(t) > 0
}

func parseExpression(tokens []Tok) (Node, int, error) {
	atom, idx, err := parseAtom(tokens)
	if err != nil {
		return nil, 0, err
	}

	if idx < len(tokens) && isBinaryOp(tokens[idx]) {
		binExpr, incr, err := parseBinaryExpression(atom, tokens[idx], tokens[idx+1:], -1)
		if err != nil {
			return nil, 0, err
		}
		return binExpr, idx + 1 + incr, nil
	}

	return atom, idx, nil
}

func parseBinaryExpression(
	leftOperand Node,
	operator Tok,
	tokens []Tok,
	previousPriority int,
) (Node, int, error) {
	rightAtom, idx, err := parseAtom(tokens)
	if err != nil {
		return nil, 0, err
	}
	incr := 0

	ops := make([]Tok, 1)
	nodes := make([]Node, 2)
	ops[0] = operator
	nodes[0] = leftOperand
	nodes[1] = rightAtom

	// build up a list of binary operations, with tree nodes
	//	where there are higher-priority binary ops
	for len(tokens) > idx && isBinaryOp(tokens[idx]) {
		if previousPriority >= getOpPriority(tokens[idx]) {
			// Priority is lower than the calling function's last op,
			//  so return control to the parent binary op
			break
		} else if getOpPriority(ops[len(ops)-1]) >= getOpPriority(tokens[idx]) {
			// Priority is lower than the previous op (but higher than parent),
			//	so it's ok to be left-heavy in this tree
			ops = append(ops, tokens[idx])
			idx++

			err := guardUnexpectedInputEnd(tokens, idx)
			if err != nil {
				return nil, 0, err
			}

			rightAtom, incr, err = parseAtom(tokens[idx:])
			if err != nil {
				return nil, 0, err
			}
			nodes = append(nodes, rightAtom)
			idx += incr
		} else {
			err := guardUnexpectedInputEnd(tokens, idx+1)
			if err != nil {
				return nil, 0, err
			}

			// Priority is higher than previous ops,
			//	so make it a right-heavy tree
			subtree, incr, err := parseBinaryExpression(
				nodes[len(nodes)-1],
				tokens[idx],
				tokens[idx+1:],
				getOpPriority(ops[len(ops)-1]),
			)
			if err != nil {
				return nil, 0, err
			}
			nodes[len(nodes)-1] = subtree
			idx += incr + 1
		}
	}

	// ops, nodes -> left-biased binary expression tree
	tree := nodes[0]
	nodes = nodes[1:]
	for len(ops) > 0 {
		tree = BinaryExprNode{
			operator:     ops[0].kind,
			leftOperand:  tree,
			rightOperand: nodes[0],
			position:     ops[0].position,
		}
		ops = ops[1:]
		nodes = nodes[1:]
	}

	return tree, idx, nil
}

func parseAtom(tokens []Tok) (Node, int, error) {
	err := guardUnexpectedInputEnd(tokens, 0)
	if err != nil {
		return nil, 0, err
	}

	tok, idx := tokens[0], 1

	switch tok.kind {
	case NumberLiteral:
		return NumberLiteralNode{tok.num, tok.position}, idx, nil

	case TextLiteral:
		return TextLiteralNode{tok.str, tok.position}, idx, nil

	case Identifier:
		if idx < len(tokens) && tokens[idx].kind == LeftParen {
			return parseCall(tok, tokens)
		}
		return VariableRefNode{tok.str, tok.position}, idx, nil

	case LeftParen:
		// grouped expression
		expr, incr, err := parseExpression(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr

		if err := expectTok(tokens, idx, RightParen); err != nil {
			return nil, 0, err
		}
		idx++ // RightParen

		return expr, idx, nil

	default:
		return nil, 0, Err{
			ErrSyntax,
			fmt.Sprintf("unexpected start of expression, found %s", tok),
		}
	}
}

func parseCall(name Tok, tokens []Tok) (Node, int, error) {
	idx := 2 // Identifier, LeftParen
	arguments := make([]Node, 0)

	for {
		err := guardUnexpectedInputEnd(tokens, idx)
		if err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind == RightParen {
			break
		}

		expr, incr, err := parseExpression(tokens[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += incr
		arguments = append(arguments, expr)

		err = guardUnexpectedInputEnd(tokens, idx)
		if err != nil {
			return nil, 0, err
		}
		if tokens[idx].kind == Comma {
			idx++
		} else if tokens[idx].kind != RightParen {
			return nil, 0, Err{
				ErrSyntax,
				fmt.Sprintf("expected %s or %s in argument list, found %s",
					Comma, RightParen, tokens[idx]),
			}
		}
	}
	idx++ // RightParen

	return CallNode{
		name:      name.str,
		arguments: arguments,
		position:  name.position,
	}, idx, nil
}
