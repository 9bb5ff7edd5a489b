package main

import (
	"os"
	"testing"
)

// buildRun lexes, parses, builds, links (no filesystem imports), and
// validates src, failing the test on any error, and returns the linked
// root Program.
func buildRun(t *testing.T, src string) *Program {
	t.Helper()
	lk := NewLinker(SearchPaths{ModulePath: ".", ObjectPath: ".", IncludePath: defaultIncludePath})
	root, err := lk.LoadSource("test.mxvm", []byte(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v := NewValidator(20)
	if err := v.Validate(root); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return root
}

// runCapturingStdout runs vm, returning (exitCode, stdout) and failing the
// test on a runtime error. Uses a real OS pipe since print/getline talk
// directly to a file descriptor.
func runCapturingStdout(t *testing.T, vm *VM) (int, string) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	vm.outFD = int(w.Fd())

	done := make(chan struct{})
	var code int
	var runErr *MXVMError
	go func() {
		code, runErr = vm.Run()
		w.Close()
		close(done)
	}()
	buf := make([]byte, 4096)
	var out []byte
	for {
		n, rerr := r.Read(buf)
		out = append(out, buf[:n]...)
		if rerr != nil {
			break
		}
	}
	<-done
	if runErr != nil {
		t.Fatalf("run: %v", runErr)
	}
	return code, string(out)
}
