package gpsl

import (
	"bytes"
	"os"
	"testing"
)

func stdlibRuntime(t *testing.T, src string) (*Runtime, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	rt := NewRuntime(mustParse(t, src))
	rt.LoadExternal(StdlibTo(out))
	return rt, out
}

func TestPrintln(t *testing.T) {
	rt, out := stdlibRuntime(t, `
fn main() {
	println("total:", 1 + 2);
	print("no newline");
}`)
	if _, err := rt.Run("main"); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if got := out.String(); got != "total: 3\nno newline" {
		t.Fatalf("bad output: %q", got)
	}
}

func TestPrintRequiresStandardIO(t *testing.T) {
	rt, out := stdlibRuntime(t, `
fn main() {
	reject("StandardIO") {
		print("leaked");
	}
}`)
	_, err := rt.Run("main")
	wantReason(t, err, ErrPermissionRejected)
	if out.Len() != 0 {
		t.Fatalf("rejected print still wrote %q", out.String())
	}
}

func TestEnvRequiresAdministrator(t *testing.T) {
	const key = "GPSL_TEST_ENV"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	rt, _ := stdlibRuntime(t, `
fn main() {
	return env("GPSL_TEST_ENV");
}`)
	val, err := rt.Run("main")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	wantText(t, val, "value")

	rt, _ = stdlibRuntime(t, `
fn main() {
	accept("StandardIO") {
		return env("GPSL_TEST_ENV");
	}
}`)
	_, err = rt.Run("main")
	wantReason(t, err, ErrPermissionRejected)
}

func TestEnvArgumentValidation(t *testing.T) {
	rt, _ := stdlibRuntime(t, "fn main() { return env(1); }")
	_, err := rt.Run("main")
	wantReason(t, err, ErrExternal)

	rt, _ = stdlibRuntime(t, "fn main() { return env(); }")
	_, err = rt.Run("main")
	wantReason(t, err, ErrExternal)
}

func TestLenIsUngated(t *testing.T) {
	// len works even with every permission stripped
	rt, _ := stdlibRuntime(t, `
fn main() {
	reject("Administrator", "StandardIO") {
		return len("four");
	}
}`)
	val, err := rt.Run("main")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	wantNumber(t, val, 4)
}

func TestLenRejectsNonText(t *testing.T) {
	rt, _ := stdlibRuntime(t, "fn main() { return len(42); }")
	_, err := rt.Run("main")
	wantReason(t, err, ErrExternal)
}

func TestStdlibUnknownNamePassesThrough(t *testing.T) {
	rt, _ := stdlibRuntime(t, "fn main() { mystery(); }")
	called := false
	rt.LoadExternal(func(name string, args []Value, accept, reject []Permission) ExternalReturn {
		called = true
		return ExternalReturn{Status: ExternalSuccess}
	})

	if _, err := rt.Run("main"); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !called {
		t.Fatal("stdlib swallowed a name it does not implement")
	}
}
