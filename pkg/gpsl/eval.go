package gpsl

import (
	"fmt"
	"strconv"
)

// Value represents any value in the GPSL scripting language.
// Values are small, copyable primitives: there are no heap objects,
// arrays, or closures.
type Value interface {
	String() string
	// Equals reports whether the given value is structurally equal to
	// the receiving value. Values of different kinds are never equal.
	Equals(Value) bool
}

// NumberValue represents the non-negative integer number type in GPSL.
// The domain is unsigned by language rule: subtraction below zero and
// division by zero are fatal runtime errors, not wraparound.
type NumberValue uint64

func (v NumberValue) String() string {
	return strconv.FormatUint(uint64(v), 10)
}

func (v NumberValue) Equals(other Value) bool {
	if ov, ok := other.(NumberValue); ok {
		return v == ov
	}

	return false
}

// TextValue represents all strings in GPSL.
type TextValue string

func (v TextValue) String() string {
	return strconv.Quote(string(v))
}

func (v TextValue) Equals(other Value) bool {
	if ov, ok := other.(TextValue); ok {
		return v == ov
	}

	return false
}

// UnitValue is the absence of a value: the result of calling a function
// that never returns, and of running an entry point that does not exist.
type UnitValue struct{}

func (v UnitValue) String() string {
	return "()"
}

func (v UnitValue) Equals(other Value) bool {
	_, ok := other.(UnitValue)
	return ok
}

// ReturnValue is an internal sentinel wrapping the value of an in-flight
// return statement. It propagates upward through statement sequences and
// loops, short-circuiting them, until the enclosing call boundary unwraps
// it. It is never visible to script code or hosts.
type ReturnValue struct {
	inner Value
}

func (v ReturnValue) String() string {
	return fmt.Sprintf("Return (%s)", v.inner)
}

func (v ReturnValue) Equals(other Value) bool {
	if ov, ok := other.(ReturnValue); ok {
		return v.inner.Equals(ov.inner)
	}

	return false
}

// only Number(1) is true; every other value, including Number(0) and
// any non-number, is false. This rule is exact by language design —
// do not generalize to "nonzero is true".
func isTruthy(v Value) bool {
	n, isNumber := v.(NumberValue)
	return isNumber && n == 1
}

// LocalVariable is a named slot in a frame. initialized stays false
// until the first assignment; Define alone does not initialize.
type LocalVariable struct {
	name        string
	value       Value
	initialized bool
}

// Frame is one scope unit on the runtime's stack: the local variables
// of a block or call, plus the permission pair active inside it.
// callBoundary marks frames that began a function invocation; variable
// lookup never crosses such a frame outward.
type Frame struct {
	accept       []Permission
	reject       []Permission
	vars         map[string]*LocalVariable
	callBoundary bool
}

// Runtime executes named functions of a parsed Program, mediating every
// unresolved call through the external function registry.
//
// A Runtime is single-threaded: the frame stack is mutated in place with
// no locking, so concurrent scripts need one Runtime each. The Program
// and the registered externals may be shared across Runtimes read-only.
type Runtime struct {
	// Accept and Reject seed the root frame of every Run call. Hosts
	// may replace them before running; the defaults match the
	// traditional GPSL root grant.
	Accept []Permission
	Reject []Permission

	// Globals is reserved for global-variable support; the evaluator
	// neither reads nor writes it.
	Globals []LocalVariable

	prog      *Program
	frames    []*Frame
	externals []ExternalFunc
}

// NewRuntime creates a Runtime for a parsed program with the default
// root permission grant (Administrator and StandardIO accepted, nothing
// rejected) and an empty external registry.
func NewRuntime(prog *Program) *Runtime {
	return &Runtime{
		Accept: []Permission{Administrator, StandardIO},
		prog:   prog,
	}
}

// LoadExternal appends a host callback to the external function
// registry. Handlers are probed in registration order.
func (rt *Runtime) LoadExternal(fn ExternalFunc) {
	rt.externals = append(rt.externals, fn)
}

func (rt *Runtime) pushFrame(accept, reject []Permission, callBoundary bool) {
	rt.frames = append(rt.frames, &Frame{
		accept:       accept,
		reject:       reject,
		vars:         make(map[string]*LocalVariable),
		callBoundary: callBoundary,
	})
}

// unwind truncates the frame stack back to a saved depth. Deferring it
// right after a push guarantees the matching pop fires on every exit
// path: normal completion, early return, and error.
func (rt *Runtime) unwind(depth int) {
	if depth > len(rt.frames) {
		LogErrf(ErrAssert, "frame stack shorter than saved depth %d", depth)
	}
	rt.frames = rt.frames[:depth]
}

func (rt *Runtime) top() *Frame {
	if len(rt.frames) == 0 {
		LogErrf(ErrAssert, "evaluation reached an empty frame stack")
	}
	return rt.frames[len(rt.frames)-1]
}

// resolve scans frames from the most recent outward and stops after
// (inclusive) the first call-boundary frame: a callee never sees a
// caller's locals, but nested blocks within one call see all enclosing
// locals of that call. Returns nil when the name is not bound.
func (rt *Runtime) resolve(name string) *LocalVariable {
	for i := len(rt.frames) - 1; i >= 0; i-- {
		frame := rt.frames[i]
		if lv, bound := frame.vars[name]; bound {
			return lv
		}
		if frame.callBoundary {
			break
		}
	}

	return nil
}

// define inserts a fresh variable into the top frame only — always the
// innermost block, never an ancestor. Redefining a name already present
// in the top frame shadows it silently.
func (rt *Runtime) define(name, typeName string) error {
	var value Value
	switch typeName {
	case "num":
		value = NumberValue(0)
	case "String":
		value = TextValue("")
	default:
		return Err{
			ErrUnknownType,
			fmt.Sprintf("%s is not a known type", typeName),
		}
	}

	rt.top().vars[name] = &LocalVariable{
		name:  name,
		value: value,
	}
	return nil
}

func (rt *Runtime) assign(name string, value Value) error {
	lv := rt.resolve(name)
	if lv == nil {
		return Err{
			ErrUnboundVariable,
			fmt.Sprintf("%s is not defined", name),
		}
	}

	lv.value = value
	lv.initialized = true
	return nil
}

// Run executes the named script function and returns its result.
// A name absent from the function table returns Unit, not an error —
// a deliberately lenient default callers must account for.
//
// Run leaves the frame stack exactly as it found it on every exit path,
// so a Runtime may be reused after a failed run.
func (rt *Runtime) Run(name string) (Value, error) {
	if rt.prog == nil {
		return UnitValue{}, nil
	}
	fn, defined := rt.prog.Functions[name]
	if !defined {
		return UnitValue{}, nil
	}

	depth := len(rt.frames)
	rt.pushFrame(copyPermissions(rt.Accept), copyPermissions(rt.Reject), true)
	defer rt.unwind(depth)

	return rt.evalBody(fn.body)
}

// evalBody executes one function body inside the already-pushed call
// frame. All statements of the body share that single frame; the first
// return sentinel stops execution and unwraps to the call's result, and
// a body that never returns yields Unit.
func (rt *Runtime) evalBody(body []Node) (Value, error) {
	for _, stmt := range body {
		val, err := stmt.Eval(rt)
		if err != nil {
			return nil, err
		}
		if ret, isReturn := val.(ReturnValue); isReturn {
			return ret.inner, nil
		}
	}

	return UnitValue{}, nil
}

// call dispatches an invocation of a script-defined function: one
// call-boundary frame for the whole body, permissions copied from the
// caller's active pair at the instant of call. Callees can only narrow
// their own permissions through annotated nested blocks, never widen
// the caller's.
func (rt *Runtime) call(fn *FunctionNode) (Value, error) {
	caller := rt.top()

	depth := len(rt.frames)
	rt.pushFrame(copyPermissions(caller.accept), copyPermissions(caller.reject), true)
	defer rt.unwind(depth)

	return rt.evalBody(fn.body)
}

func (n NumberLiteralNode) Eval(rt *Runtime) (Value, error) {
	return NumberValue(n.val), nil
}

func (n TextLiteralNode) Eval(rt *Runtime) (Value, error) {
	return TextValue(n.val), nil
}

func (n VariableRefNode) Eval(rt *Runtime) (Value, error) {
	lv := rt.resolve(n.name)
	if lv == nil {
		return nil, Err{
			ErrUnboundVariable,
			fmt.Sprintf("%s is not defined [%s]", n.name, poss(n)),
		}
	}
	return lv.value, nil
}

func (n BinaryExprNode) Eval(rt *Runtime) (Value, error) {
	if n.operator == AssignOp {
		// the left side names an assignment target and is never
		// evaluated as a value
		ref, isRef := n.leftOperand.(VariableRefNode)
		if !isRef {
			return nil, Err{
				ErrTypeMismatch,
				fmt.Sprintf("cannot assign to non-variable %s [%s]",
					n.leftOperand, poss(n.leftOperand)),
			}
		}

		rightValue, err := n.rightOperand.Eval(rt)
		if err != nil {
			return nil, err
		}
		if rightValue == nil {
			return nil, Err{
				ErrTypeMismatch,
				fmt.Sprintf("assignment to %s produced no value [%s]",
					ref.name, poss(n.rightOperand)),
			}
		}

		if err := rt.assign(ref.name, rightValue); err != nil {
			if e, isErr := err.(Err); isErr {
				return nil, Err{
					e.reason,
					fmt.Sprintf("%s [%s]", e.message, poss(n.leftOperand)),
				}
			}
			return nil, err
		}
		return nil, nil
	}

	leftValue, err := n.leftOperand.Eval(rt)
	if err != nil {
		return nil, err
	}
	rightValue, err := n.rightOperand.Eval(rt)
	if err != nil {
		return nil, err
	}
	if leftValue == nil || rightValue == nil {
		return nil, Err{
			ErrTypeMismatch,
			fmt.Sprintf("operand of %s produced no value [%s]", n.operator, poss(n)),
		}
	}

	switch n.operator {
	case AddOp, SubtractOp, MultiplyOp, DivideOp:
		leftNum, err := extractNumber(leftValue, n.leftOperand)
		if err != nil {
			return nil, err
		}
		rightNum, err := extractNumber(rightValue, n.rightOperand)
		if err != nil {
			return nil, err
		}

		switch n.operator {
		case AddOp:
			return leftNum + rightNum, nil
		case SubtractOp:
			if rightNum > leftNum {
				return nil, Err{
					ErrArithmeticUnderflow,
					fmt.Sprintf("%s - %s underflows below zero [%s]",
						leftNum, rightNum, poss(n)),
				}
			}
			return leftNum - rightNum, nil
		case MultiplyOp:
			return leftNum * rightNum, nil
		default: // DivideOp
			if rightNum == 0 {
				return nil, Err{
					ErrDivisionByZero,
					fmt.Sprintf("division by zero [%s]", poss(n.rightOperand)),
				}
			}
			// integer division truncates
			return leftNum / rightNum, nil
		}

	case EqualOp:
		// structural equality is legal across kinds: comparing a Text
		// to a Number is simply false, not a type error
		return boolNumber(leftValue.Equals(rightValue)), nil
	case NotEqualOp:
		return boolNumber(!leftValue.Equals(rightValue)), nil

	case LessThanOp, LessEqOp:
		leftNum, err := extractNumber(leftValue, n.leftOperand)
		if err != nil {
			return nil, err
		}
		rightNum, err := extractNumber(rightValue, n.rightOperand)
		if err != nil {
			return nil, err
		}
		if n.operator == LessThanOp {
			return boolNumber(leftNum < rightNum), nil
		}
		return boolNumber(leftNum <= rightNum), nil
	}

	LogErrf(ErrAssert, "unknown binary operator %s", n.String())
	return nil, nil
}

func extractNumber(v Value, n Node) (NumberValue, error) {
	num, isNumber := v.(NumberValue)
	if !isNumber {
		return 0, Err{
			ErrTypeMismatch,
			fmt.Sprintf("%s is not a number [%s]", v, poss(n)),
		}
	}
	return num, nil
}

func boolNumber(b bool) NumberValue {
	if b {
		return NumberValue(1)
	}
	return NumberValue(0)
}

func (n CallNode) Eval(rt *Runtime) (Value, error) {
	// arguments evaluate left to right in the caller's scope,
	// before any frame switch
	args := make([]Value, len(n.arguments))
	for i, arg := range n.arguments {
		val, err := arg.Eval(rt)
		if err != nil {
			return nil, err
		}
		if val == nil {
			val = UnitValue{}
		}
		args[i] = val
	}

	// script-defined functions shadow external ones
	if rt.prog != nil {
		if fn, defined := rt.prog.Functions[n.name]; defined {
			return rt.call(fn)
		}
	}

	caller := rt.top()
	for _, external := range rt.externals {
		ret := external(n.name, args,
			copyPermissions(caller.accept), copyPermissions(caller.reject))
		switch ret.Status {
		case ExternalSuccess:
			if ret.Value == nil {
				return UnitValue{}, nil
			}
			return ret.Value, nil
		case ExternalNotFound:
			// probe the next handler in registration order
		case ExternalRejected:
			return nil, Err{
				ErrPermissionRejected,
				fmt.Sprintf("call to %s rejected by the host [%s]", n.name, poss(n)),
			}
		default: // ExternalError
			return nil, Err{
				ErrExternal,
				fmt.Sprintf("external function %s failed [%s]", n.name, poss(n)),
			}
		}
	}

	return nil, Err{
		ErrUndefinedFunction,
		fmt.Sprintf("function %s is not defined [%s]", n.name, poss(n)),
	}
}

func (n ReturnNode) Eval(rt *Runtime) (Value, error) {
	val, err := n.expr.Eval(rt)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, Err{
			ErrTypeMismatch,
			fmt.Sprintf("return expression produced no value [%s]", poss(n.expr)),
		}
	}

	return ReturnValue{inner: val}, nil
}

func (n IfNode) Eval(rt *Runtime) (Value, error) {
	condition, err := n.condition.Eval(rt)
	if err != nil {
		return nil, err
	}

	branch := n.elseStmt
	if condition != nil && isTruthy(condition) {
		branch = n.then
	}
	if branch == nil {
		return nil, nil
	}

	val, err := branch.Eval(rt)
	if err != nil {
		return nil, err
	}
	if ret, isReturn := val.(ReturnValue); isReturn {
		return ret, nil
	}

	return nil, nil
}

func (n WhileNode) Eval(rt *Runtime) (Value, error) {
	condition, err := n.condition.Eval(rt)
	if err != nil {
		return nil, err
	}

	// a condition producing no value counts as false
	for condition != nil && isTruthy(condition) {
		val, err := n.body.Eval(rt)
		if err != nil {
			return nil, err
		}
		if ret, isReturn := val.(ReturnValue); isReturn {
			// propagate without re-testing the condition
			return ret, nil
		}

		condition, err = n.condition.Eval(rt)
		if err != nil {
			return nil, err
		}
	}

	return nil, nil
}

func (n ForNode) Eval(rt *Runtime) (Value, error) {
	if n.init != nil {
		if _, err := n.init.Eval(rt); err != nil {
			return nil, err
		}
	}

	// an absent condition defaults to true
	testCondition := func() (bool, error) {
		if n.condition == nil {
			return true, nil
		}
		condition, err := n.condition.Eval(rt)
		if err != nil {
			return false, err
		}
		return condition != nil && isTruthy(condition), nil
	}

	proceed, err := testCondition()
	if err != nil {
		return nil, err
	}
	for proceed {
		val, err := n.body.Eval(rt)
		if err != nil {
			return nil, err
		}
		if ret, isReturn := val.(ReturnValue); isReturn {
			// short-circuits the loop and propagates
			return ret, nil
		}

		if n.update != nil {
			if _, err := n.update.Eval(rt); err != nil {
				return nil, err
			}
		}

		proceed, err = testCondition()
		if err != nil {
			return nil, err
		}
	}

	return nil, nil
}

func (n BlockNode) Eval(rt *Runtime) (Value, error) {
	enclosing := rt.top()

	// an annotation fully replaces the inherited pair for the block's
	// lifetime; the enclosing pair is restored verbatim on exit
	accept := copyPermissions(enclosing.accept)
	reject := copyPermissions(enclosing.reject)
	if n.annot != nil {
		accept = copyPermissions(n.annot.Accept)
		reject = copyPermissions(n.annot.Reject)
	}

	depth := len(rt.frames)
	rt.pushFrame(accept, reject, false)
	defer rt.unwind(depth)

	for _, stmt := range n.statements {
		val, err := stmt.Eval(rt)
		if err != nil {
			return nil, err
		}
		if ret, isReturn := val.(ReturnValue); isReturn {
			return ret, nil
		}
	}

	return nil, nil
}

func (n DefineNode) Eval(rt *Runtime) (Value, error) {
	if err := rt.define(n.name, n.typeName); err != nil {
		if e, isErr := err.(Err); isErr {
			return nil, Err{
				e.reason,
				fmt.Sprintf("%s [%s]", e.message, poss(n)),
			}
		}
		return nil, err
	}
	return nil, nil
}
