package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// goFile is one source file under internal/ with its import paths.
type goFile struct {
	rel     string
	imports []string
}

type tree struct {
	module string
	files  []goFile
}

func loadTree(t *testing.T) tree {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	module, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	out := tree{module: module}
	fset := token.NewFileSet()
	err = filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		gf := goFile{rel: filepath.ToSlash(rel)}
		for _, spec := range f.Imports {
			if imp, err := strconv.Unquote(spec.Path.Value); err == nil {
				gf.imports = append(gf.imports, imp)
			}
		}
		out.files = append(out.files, gf)
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal/: %v", err)
	}
	return out
}

func (tr tree) internal(pkg string) string { return tr.module + "/internal/" + pkg }

// Each layer lists the internal packages it may not import.
var layerRules = []struct {
	prefix string
	deny   []string
}{
	{"internal/platform/", []string{"compliance", "domain", "data/", "services", "http", "messaging", "realtime", "clients", "app"}},
	{"internal/domain/", []string{"compliance", "data/", "services", "http", "messaging", "realtime", "clients", "app"}},
	{"internal/compliance/", []string{"data/", "services", "http", "messaging", "realtime", "clients", "app", "observability", "platform"}},
	{"internal/data/", []string{"services", "http", "messaging", "realtime", "clients", "app"}},
	{"internal/realtime/", []string{"compliance", "data/", "services", "http", "messaging", "clients", "app"}},
	{"internal/services/", []string{"http", "messaging", "clients", "app"}},
	{"internal/messaging/", []string{"data/", "http", "realtime", "clients", "app"}},
	{"internal/http/", []string{"data/", "messaging", "realtime/bus", "clients", "app"}},
}

func TestImportBoundaries(t *testing.T) {
	tr := loadTree(t)
	var violations []string
	for _, f := range tr.files {
		for _, rule := range layerRules {
			if !strings.HasPrefix(f.rel, rule.prefix) {
				continue
			}
			for _, imp := range f.imports {
				for _, deny := range rule.deny {
					if strings.HasPrefix(imp, tr.internal(deny)) {
						violations = append(violations, fmt.Sprintf("- %s imports %q (denied for %s)", f.rel, imp, rule.prefix))
						break
					}
				}
			}
		}
	}
	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n%s", strings.Join(violations, "\n"))
	}
}

// The scoring core depends on the standard library and the safety models only.
func TestComplianceCoreIsPure(t *testing.T) {
	tr := loadTree(t)
	allowed := tr.internal("domain/safety")
	for _, f := range tr.files {
		if !strings.HasPrefix(f.rel, "internal/compliance/") {
			continue
		}
		for _, imp := range f.imports {
			if imp == allowed || !strings.Contains(strings.SplitN(imp, "/", 2)[0], ".") {
				continue
			}
			t.Errorf("%s imports %q; the compliance core may only import the standard library and %s", f.rel, imp, allowed)
		}
	}
}

func TestClientsOnlyWiredFromApp(t *testing.T) {
	tr := loadTree(t)
	clients := tr.internal("clients/")
	var violations []string
	for _, f := range tr.files {
		if strings.HasPrefix(f.rel, "internal/clients/") || strings.HasPrefix(f.rel, "internal/app/") {
			continue
		}
		for _, imp := range f.imports {
			if strings.HasPrefix(imp, clients) {
				violations = append(violations, fmt.Sprintf("- %s imports %q", f.rel, imp))
			}
		}
	}
	if len(violations) > 0 {
		t.Fatalf("internal/clients imported outside internal/app (inject through an interface instead):\n%s", strings.Join(violations, "\n"))
	}
}

func findModuleRoot(start string) (string, error) {
	for dir := start; ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if mp, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "module "); ok {
			if mp = strings.TrimSpace(mp); mp != "" {
				return mp, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
