// Command forge composes new class files from existing ones. It reads a
// base class from the manifest's class path, applies the behavior rules
// given on the command line, and writes the resulting artifacts (primary
// plus auxiliaries) to the output directory or a bundle file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/forgelabs/typeforge/auxiliary"
	"github.com/forgelabs/typeforge/compose"
	"github.com/forgelabs/typeforge/dist"
	"github.com/forgelabs/typeforge/impl"
	"github.com/forgelabs/typeforge/manifest"
	"github.com/forgelabs/typeforge/match"
	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/pool"
	"github.com/forgelabs/typeforge/registry"
	"github.com/forgelabs/typeforge/typedesc"
	"github.com/forgelabs/typeforge/writer"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	manifestDir := flag.String("manifest", ".", "Directory to search for forge.toml (walking up)")
	name := flag.String("name", "", "Internal name of the composed type (default: <base>$Forged)")
	dump := flag.Bool("dump", false, "Print a bytecode listing of every produced method")
	verbose := flag.Bool("v", false, "Verbose output")

	var rules []ruleSpec
	flag.Func("stub", "Stub the named method (repeatable)", func(v string) error {
		rules = append(rules, ruleSpec{kind: "stub", arg: v})
		return nil
	})
	flag.Func("value", "name=literal: make the named method return the string literal (repeatable)", func(v string) error {
		if !strings.Contains(v, "=") {
			return fmt.Errorf("want name=literal, got %q", v)
		}
		rules = append(rules, ruleSpec{kind: "value", arg: v})
		return nil
	})
	flag.Func("throw", "name=exception: make the named method throw (repeatable)", func(v string) error {
		if !strings.Contains(v, "=") {
			return fmt.Errorf("want name=exception, got %q", v)
		}
		rules = append(rules, ruleSpec{kind: "throw", arg: v})
		return nil
	})
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: forge [flags] <base-internal-name>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	baseName := strings.ReplaceAll(flag.Arg(0), ".", "/")

	m, err := manifest.FindAndLoad(*manifestDir)
	if err != nil {
		fatal("loading manifest: %v", err)
	}
	if m == nil {
		fatal("no forge.toml found from %s", *manifestDir)
	}

	types := pool.New(pool.DirResolver(m.ClassPathDirs()...))
	base, err := types.Resolve(baseName)
	if err != nil {
		fatal("resolving base type: %v", err)
	}

	composedName := *name
	if composedName == "" {
		composedName = baseName + "$Forged"
	}

	c := compose.Subclass(base, composedName).
		WithSource(registry.TypeSourceFunc(types.Find)).
		WithVersion(writer.Config{Major: m.Output.TargetMajor, Minor: m.Output.TargetMinor})
	if m.Output.RandomNaming {
		c = c.WithNaming(auxiliary.RandomNaming{})
	}
	for _, r := range rules {
		c = r.apply(c)
	}

	result, err := c.Run()
	if err != nil {
		fatal("composing %s: %v", composedName, err)
	}

	if *dump {
		dumpArtifacts(result)
	}
	if err := emit(m, result); err != nil {
		fatal("writing artifacts: %v", err)
	}
}

// ruleSpec is one behavior rule from the command line, applied in flag
// order so the last matching rule wins as usual.
type ruleSpec struct {
	kind string
	arg  string
}

func (r ruleSpec) apply(c compose.Composition) compose.Composition {
	switch r.kind {
	case "stub":
		return c.Matching(match.Named(r.arg), impl.NewStub())
	case "value":
		name, literal, _ := strings.Cut(r.arg, "=")
		v, err := impl.NewFixedValue(literal)
		if err != nil {
			fatal("bad -value %q: %v", r.arg, err)
		}
		return c.Matching(match.Named(name), v)
	case "throw":
		name, exception, _ := strings.Cut(r.arg, "=")
		return c.Matching(match.Named(name), impl.NewThrow(typedesc.Class(exception), ""))
	}
	return c
}

func dumpArtifacts(result *compose.Result) {
	for _, art := range result.Artifacts() {
		fmt.Printf("== %s (%d bytes)\n", art.Name, len(art.Bytes))
		f, err := classfile.Parse(art.Bytes)
		if err != nil {
			fmt.Printf("  unparseable: %v\n", err)
			continue
		}
		for _, method := range f.Methods {
			fmt.Printf("  %s%s\n", method.Name, method.Descriptor)
			if method.Code != nil {
				fmt.Print(indent(classfile.FormatCode(method.Code.Bytes), "    "))
			}
		}
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}

func emit(m *manifest.Manifest, result *compose.Result) error {
	if m.Output.Bundle != "" {
		data, err := dist.MarshalBundle(dist.FromResult(result))
		if err != nil {
			return err
		}
		path := filepath.Join(m.OutputDir(), m.Output.Bundle)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	}
	for _, art := range result.Artifacts() {
		path := filepath.Join(m.OutputDir(), filepath.FromSlash(art.Name)+".class")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, art.Bytes, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
