package main

import (
	"flag"
	"fmt"
	"os"
)

// RunCLI implements mxvm's command surface (spec.md §6.3):
//
//	mxvm --action interpret FILE   (or -a interpret, the original's shorthand)
//	mxvm --action translate -o OUT FILE [--target x86_64_linux]
//	mxvm FILE                      (bare positional defaults to interpret)
//
// Grounded on the teacher's flag-based CLI entry point; adapted to MXVM's
// two actions instead of the teacher's many build/run/fmt subcommands.
func RunCLI(argv []string) int {
	fs := flag.NewFlagSet("mxvm", flag.ContinueOnError)
	var action string
	fs.StringVar(&action, "action", "interpret", "interpret | translate")
	fs.StringVar(&action, "a", "interpret", "shorthand for --action")
	output := fs.String("o", "", "output file for --action translate")
	target := fs.String("target", string(TargetX86_64Linux), "translation target")
	verbose := fs.Bool("verbose", false, "print diagnostic tracing to stderr")

	if err := fs.Parse(argv); err != nil {
		return 1
	}
	args := fs.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "mxvm: expected exactly one input file")
		return 1
	}
	file := args[0]

	tgt, ok := parseTarget(*target)
	if !ok {
		fmt.Fprintf(os.Stderr, "mxvm: unknown target %q\n", *target)
		return 1
	}

	root, mxErr := loadAndValidate(file, *verbose)
	if mxErr != nil {
		return reportAndExitCode(mxErr)
	}

	switch action {
	case "interpret":
		vm := NewVM(root)
		code, mxErr := vm.Run()
		if mxErr != nil {
			return reportAndExitCode(mxErr)
		}
		return code
	case "translate":
		if *output == "" {
			fmt.Fprintln(os.Stderr, "mxvm: --action translate requires -o")
			return 1
		}
		em := NewEmitter(tgt)
		text, mxErr := em.Emit(root)
		if mxErr != nil {
			return reportAndExitCode(mxErr)
		}
		if err := os.WriteFile(*output, []byte(text), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "mxvm: cannot write %q: %v\n", *output, err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "mxvm: unknown action %q\n", action)
		return 1
	}
}

// loadAndValidate parses, links, and validates file, returning the linked
// root Program ready for either interpretation or translation.
func loadAndValidate(file string, verbose bool) (*Program, *MXVMError) {
	lk := NewLinker(NewSearchPathsFromEnv())
	root, err := lk.LoadFile(file)
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "mxvm: linked %q (%d instructions, %d objects)\n", root.Name, len(root.Instructions), len(root.Objects))
	}
	v := NewValidator(20)
	if err := v.Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

// reportAndExitCode prints err and maps its category to the process exit
// code MXVM promises (spec.md §6.5): 1 for a parse error, 2 for
// validation/link errors, 3 for a runtime error.
func reportAndExitCode(err *MXVMError) int {
	fmt.Fprintln(os.Stderr, err.Error())
	switch err.Category {
	case CategorySyntax:
		return 1
	case CategorySemantic, CategoryLink:
		return 2
	default:
		return 3
	}
}
