package gpsl

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ExternalStatus is a host handler's report on one dispatched call.
type ExternalStatus int

const (
	// ExternalSuccess stops dispatch; the handler's Value (or Unit when
	// absent) becomes the call's result.
	ExternalSuccess ExternalStatus = iota
	// ExternalNotFound passes the call to the next registered handler.
	ExternalNotFound
	// ExternalRejected stops dispatch; the call fails with a
	// permission-rejected error.
	ExternalRejected
	// ExternalError stops dispatch; the call fails with an external
	// error.
	ExternalError
)

// ExternalReturn is the result of probing one external handler.
type ExternalReturn struct {
	Status ExternalStatus
	Value  Value // optional; nil on success means Unit
}

// ExternalFunc is a host-provided callback consulted when a call does
// not resolve to a script-defined function. It receives the call name,
// the evaluated arguments, and copies of the accept/reject permission
// pair active at the call site. Handlers enforce their own capability
// requirements against that pair (see Granted) and must report failures
// through the status protocol rather than panicking.
type ExternalFunc func(name string, args []Value, accept, reject []Permission) ExternalReturn

// Stdlib returns the stock host library writing to stdout.
func Stdlib() ExternalFunc {
	return StdlibTo(os.Stdout)
}

// StdlibTo returns the stock host library as a single external handler:
//
//	print(args...)    StandardIO    write rendered args, space-joined
//	println(args...)  StandardIO    print plus a trailing newline
//	env(name)         Administrator value of a host environment variable
//	len(text)         (ungated)     length of a Text value
//
// Calls lacking the required permission are rejected; malformed
// arguments are reported as external errors.
func StdlibTo(out io.Writer) ExternalFunc {
	return func(name string, args []Value, accept, reject []Permission) ExternalReturn {
		switch name {
		case "print", "println":
			if !Granted(StandardIO, accept, reject) {
				return ExternalReturn{Status: ExternalRejected}
			}

			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = renderValue(arg)
			}
			line := strings.Join(parts, " ")
			if name == "println" {
				line += "\n"
			}
			if _, err := io.WriteString(out, line); err != nil {
				return ExternalReturn{Status: ExternalError}
			}
			return ExternalReturn{Status: ExternalSuccess}

		case "env":
			if !Granted(Administrator, accept, reject) {
				return ExternalReturn{Status: ExternalRejected}
			}
			if len(args) != 1 {
				return ExternalReturn{Status: ExternalError}
			}
			key, isText := args[0].(TextValue)
			if !isText {
				return ExternalReturn{Status: ExternalError}
			}
			return ExternalReturn{
				Status: ExternalSuccess,
				Value:  TextValue(os.Getenv(string(key))),
			}

		case "len":
			if len(args) != 1 {
				return ExternalReturn{Status: ExternalError}
			}
			text, isText := args[0].(TextValue)
			if !isText {
				return ExternalReturn{Status: ExternalError}
			}
			return ExternalReturn{
				Status: ExternalSuccess,
				Value:  NumberValue(len(text)),
			}
		}

		return ExternalReturn{Status: ExternalNotFound}
	}
}

// renderValue formats a value for host-facing output: text appears
// unquoted, everything else uses its canonical representation.
func renderValue(v Value) string {
	if text, isText := v.(TextValue); isText {
		return string(text)
	}
	if v == nil {
		return fmt.Sprint(UnitValue{})
	}
	return v.String()
}
