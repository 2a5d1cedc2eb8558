package filemon_test

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/afero"

	"github.com/aurieh/filemon"
)

// Example demonstrates the full cycle: record a computation's file
// dependencies, then decide later whether its result is still valid.
func Example() {
	fs := afero.NewMemMapFs()
	root := "/project"
	_ = afero.WriteFile(fs, root+"/config.yaml", []byte("targets: [app]"), 0o644)
	_ = afero.WriteFile(fs, root+"/src/main.go", []byte("package main"), 0o644)

	m := filemon.New[string, string](filemon.StringCodec{}, filemon.StringCodec{}, filemon.WithFs(fs))

	deps := []filemon.Dependency{
		filemon.HashedFileDependency{Path: "config.yaml"},
		filemon.GlobDependency{Glob: filemon.MustParseGlobPath("src/*.go")},
	}
	if err := m.Update("/caches/build", root, deps, "build:app", "built app v1"); err != nil {
		log.Fatal(err)
	}

	res, err := m.Check("/caches/build", root, "build:app")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("unchanged:", res.Unchanged)
	fmt.Println("result:", res.Result)

	// Touching a tracked file's content invalidates the result.
	_ = afero.WriteFile(fs, root+"/config.yaml", []byte("targets: [app, docs]"), 0o644)
	_ = fs.Chtimes(root+"/config.yaml", time.Now(), time.Now().Add(time.Second))
	res, err = m.Check("/caches/build", root, "build:app")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("after edit unchanged:", res.Unchanged)

	// Output:
	// unchanged: true
	// result: built app v1
	// after edit unchanged: false
}

// ExampleSearchPath records a file search so the cached result is
// invalidated either when the found file changes or when a candidate
// appears earlier on the search path.
func ExampleSearchPath() {
	deps := filemon.SearchPath(
		[]string{"override/tool.cfg", "local/tool.cfg"},
		"system/tool.cfg",
	)
	for _, dep := range deps {
		fmt.Println(dep)
	}
	// Output:
	// absent:override/tool.cfg
	// absent:local/tool.cfg
	// file:system/tool.cfg
}

// ExampleMonitor_MatchGlob expands a glob path against the live
// filesystem without touching any cache.
func ExampleMonitor_MatchGlob() {
	fs := afero.NewMemMapFs()
	root := "/project"
	for _, p := range []string{"proj1/a.cabal", "proj1/x.txt", "proj2/b.cabal"} {
		_ = afero.WriteFile(fs, root+"/"+p, []byte("x"), 0o644)
	}

	m := filemon.New[string, string](filemon.StringCodec{}, filemon.StringCodec{}, filemon.WithFs(fs))
	matches, err := m.MatchGlob(root, filemon.MustParseGlobPath("proj*/*.cabal"))
	if err != nil {
		log.Fatal(err)
	}
	for _, match := range matches {
		fmt.Println(match)
	}
	// Output:
	// proj1/a.cabal
	// proj2/b.cabal
}
