package lua

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCallFunctionWithReturn(t *testing.T) {
	vm := NewVM()
	if err := vm.LoadString(`
name = "adder"
function add(a, b) return a + b, a > b, "ok" end
`); err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}

	name, err := vm.GetGlobalString("name")
	if err != nil || name != "adder" {
		t.Fatalf("GetGlobalString() = %q, %v", name, err)
	}

	results, err := vm.CallFunctionWithReturn("add", 3, 2, uint32(1))
	if err != nil {
		t.Fatalf("CallFunctionWithReturn() error = %v", err)
	}
	if results[0] != 3.0 || results[1] != true || results[2] != "ok" {
		t.Fatalf("results = %v", results)
	}
}

func TestUnsupportedArgument(t *testing.T) {
	vm := NewVM()
	if err := vm.LoadString(`function f(x) end`); err != nil {
		t.Fatal(err)
	}
	if err := vm.CallFunction("f", struct{}{}); err == nil {
		t.Fatal("CallFunction() accepted a struct argument")
	}
	if !vm.HasFunction("f") {
		t.Fatal("stack left unbalanced after a failed call")
	}
}

func TestSandbox(t *testing.T) {
	vm := NewVM()
	for _, global := range []string{"io", "os", "require", "dofile"} {
		if err := vm.LoadString(`assert(` + global + ` == nil)`); err != nil {
			t.Errorf("%s is reachable: %v", global, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.lua")
	if FileExists(path) {
		t.Fatal("FileExists() reported a missing file")
	}
	if err := os.WriteFile(path, []byte("value = 'loaded'"), 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Fatal("FileExists() missed a written file")
	}

	vm := NewVM()
	if err := vm.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if v, _ := vm.GetGlobalString("value"); v != "loaded" {
		t.Fatalf("value = %q", v)
	}
}
