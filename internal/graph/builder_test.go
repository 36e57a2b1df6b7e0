package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repolens/internal/lang"
)

func pyFile(path string, imports []lang.ImportInfo, classes []lang.ClassInfo, functions []lang.FunctionInfo) *lang.FileSymbols {
	return &lang.FileSymbols{
		Path:      path,
		Language:  "python",
		Status:    lang.StatusOK,
		Imports:   imports,
		Classes:   classes,
		Functions: functions,
		LineCount: 10,
	}
}

func buildTwoModuleRepo(t *testing.T) *Snapshot {
	t.Helper()
	b := NewBuilder("/repo")
	b.SetFile(pyFile("pkg/a.py",
		[]lang.ImportInfo{
			{Target: "pkg.b", Names: []string{"g"}, Line: 1},
			{Target: "os", Line: 2},
		},
		nil,
		[]lang.FunctionInfo{{
			Name:  "f",
			Calls: []lang.CallSite{{Callee: "g", Line: 5}},
			Range: lang.SourceRange{StartLine: 4, EndLine: 6},
		}},
	))
	b.SetFile(pyFile("pkg/b.py",
		nil,
		nil,
		[]lang.FunctionInfo{{Name: "g", Range: lang.SourceRange{StartLine: 1, EndLine: 2}}},
	))
	return b.Build("hash1")
}

func TestBuilderContainmentForest(t *testing.T) {
	s := buildTwoModuleRepo(t)

	for _, n := range s.Nodes() {
		parents := s.EdgesTo(n.ID, EdgeContains)
		if n.ID == RootPackage || n.Kind == NodeExternal {
			assert.Empty(t, parents, "root and externals have no parent: %s", n.ID)
			continue
		}
		assert.Len(t, parents, 1, "exactly one parent for %s", n.ID)
	}

	// no cycles: walking parents always terminates at the root package
	for _, n := range s.Nodes() {
		seen := map[string]bool{}
		id := n.ID
		for id != "" {
			require.False(t, seen[id], "containment cycle through %s", id)
			seen[id] = true
			id = s.Parent(id)
		}
	}
}

func TestBuilderQualifiedNames(t *testing.T) {
	s := buildTwoModuleRepo(t)

	require.NotNil(t, s.Node("pkg"))
	assert.Equal(t, NodePackage, s.Node("pkg").Kind)
	require.NotNil(t, s.Node("pkg.a"))
	assert.Equal(t, NodeModule, s.Node("pkg.a").Kind)
	f := s.Node("pkg.a.f")
	require.NotNil(t, f)
	assert.Equal(t, NodeFunction, f.Kind)
	assert.Equal(t, "pkg.a", f.Module)
	assert.Equal(t, "pkg", f.Package)
}

func TestBuilderImportResolution(t *testing.T) {
	s := buildTwoModuleRepo(t)

	imports := s.EdgesFrom("pkg.a", EdgeImports)
	require.Len(t, imports, 2)
	assert.Equal(t, "pkg.b", imports[0].To, "repository import resolved to module")
	assert.Equal(t, ExternalID("os"), imports[1].To, "unknown import bound to external pseudo-node")

	ext := s.Node(ExternalID("os"))
	require.NotNil(t, ext)
	assert.Equal(t, NodeExternal, ext.Kind)

	// the imported symbol g is bound in a's scope to b's function
	assert.Equal(t, "pkg.b.g", s.Node("pkg.a").Bindings["g"])
}

func TestBuilderSharedExternalNode(t *testing.T) {
	b := NewBuilder("/repo")
	b.SetFile(pyFile("a.py", []lang.ImportInfo{{Target: "requests", Line: 1}}, nil, nil))
	b.SetFile(pyFile("b.py", []lang.ImportInfo{{Target: "requests", Line: 1}}, nil, nil))
	s := b.Build("h")

	count := 0
	for _, n := range s.NodesOfKind(NodeExternal) {
		if n.Name == "requests" {
			count++
		}
	}
	assert.Equal(t, 1, count, "one pseudo-node per distinct external name")
	assert.Len(t, s.EdgesTo(ExternalID("requests"), EdgeImports), 2)
}

func TestBuilderBaseResolution(t *testing.T) {
	b := NewBuilder("/repo")
	b.SetFile(pyFile("models.py",
		[]lang.ImportInfo{{Target: "base", Names: []string{"Entity"}, Line: 1}},
		[]lang.ClassInfo{
			{Name: "Animal"},
			{Name: "Dog", Bases: []string{"Animal"}},
			{Name: "Cat", Bases: []string{"Entity"}},
			{Name: "Alien", Bases: []string{"martian.Base"}},
		},
		nil,
	))
	b.SetFile(pyFile("base.py", nil, []lang.ClassInfo{{Name: "Entity"}}, nil))
	s := b.Build("h")

	sameModule := s.EdgesFrom("models.Dog", EdgeInherits)
	require.Len(t, sameModule, 1)
	assert.Equal(t, "models.Animal", sameModule[0].To)
	assert.False(t, sameModule[0].Approximate, "same-module resolution is exact")

	viaImport := s.EdgesFrom("models.Cat", EdgeInherits)
	require.Len(t, viaImport, 1)
	assert.Equal(t, "base.Entity", viaImport[0].To)
	assert.True(t, viaImport[0].Approximate)

	unresolved := s.EdgesFrom("models.Alien", EdgeInherits)
	require.Len(t, unresolved, 1)
	assert.True(t, IsExternalID(unresolved[0].To))
}

func TestBuilderNestedClasses(t *testing.T) {
	b := NewBuilder("/repo")
	b.SetFile(pyFile("m.py", nil,
		[]lang.ClassInfo{
			{Name: "Outer", Methods: []lang.FunctionInfo{{Name: "run"}}},
			{Name: "Outer.Inner"},
		},
		nil,
	))
	s := b.Build("h")

	inner := s.Node("m.Outer.Inner")
	require.NotNil(t, inner)
	assert.Equal(t, "m.Outer", s.Parent("m.Outer.Inner"))
	assert.Equal(t, "Inner", inner.Name)

	require.NotNil(t, s.Node("m.Outer.run"))
	assert.Equal(t, "m.Outer", s.Node("m.Outer.run").Class)
}

func TestBuilderDeterministicAcrossRuns(t *testing.T) {
	s1 := buildTwoModuleRepo(t)
	s2 := buildTwoModuleRepo(t)

	f1, err := json.Marshal(s1.Facts())
	require.NoError(t, err)
	f2, err := json.Marshal(s2.Facts())
	require.NoError(t, err)
	assert.Equal(t, f1, f2, "identical input yields byte-identical facts")
}

func TestBuilderIncrementalEqualsFull(t *testing.T) {
	// incremental: build, replace one file, rebuild
	inc := NewBuilder("/repo")
	inc.SetFile(pyFile("a.py", nil, nil, []lang.FunctionInfo{{Name: "f"}}))
	inc.SetFile(pyFile("b.py", nil, nil, []lang.FunctionInfo{{Name: "g"}}))
	inc.Build("h1")
	inc.SetFile(pyFile("b.py", nil, nil, []lang.FunctionInfo{{Name: "g"}, {Name: "h"}}))
	s := inc.Build("h2")

	// full: from scratch with the final content
	full := NewBuilder("/repo")
	full.SetFile(pyFile("a.py", nil, nil, []lang.FunctionInfo{{Name: "f"}}))
	full.SetFile(pyFile("b.py", nil, nil, []lang.FunctionInfo{{Name: "g"}, {Name: "h"}}))
	fs := full.Build("h2")

	assert.Equal(t, fs.Nodes(), s.Nodes(), "no stale nodes survive an incremental rebuild")
	assert.Equal(t, fs.Edges(), s.Edges())
	assert.Greater(t, s.Version(), fs.Version(), "incremental run advances the version counter")
}

func TestBuilderRelativeImports(t *testing.T) {
	b := NewBuilder("/repo")
	b.SetFile(pyFile("pkg/__init__.py", nil, nil, nil))
	b.SetFile(pyFile("pkg/a.py", []lang.ImportInfo{
		{Target: ".", Names: []string{"b"}, Line: 1},
		{Target: ".b", Line: 2},
	}, nil, nil))
	b.SetFile(pyFile("pkg/b.py", nil, nil, nil))
	s := b.Build("h")

	imports := s.EdgesFrom("pkg.a", EdgeImports)
	require.Len(t, imports, 2)
	assert.Equal(t, "pkg", imports[0].To, "bare dot resolves to the package")
	assert.Equal(t, "pkg.b", imports[1].To, "dot-relative module resolves inside the package")
	assert.Equal(t, "pkg.b", s.Node("pkg.a").Bindings["b"])
}

func TestSnapshotWithCallEdges(t *testing.T) {
	s := buildTwoModuleRepo(t)
	require.Empty(t, s.EdgesFrom("pkg.a.f", EdgeCalls))

	s2 := s.WithCallEdges([]Edge{{From: "pkg.a.f", To: "pkg.b.g"}})

	// original snapshot untouched
	assert.Empty(t, s.EdgesFrom("pkg.a.f", EdgeCalls))

	calls := s2.EdgesFrom("pkg.a.f", EdgeCalls)
	require.Len(t, calls, 1)
	assert.Equal(t, "pkg.b.g", calls[0].To)
	assert.True(t, calls[0].Approximate, "all call edges are approximate")
	assert.Equal(t, s.Version(), s2.Version())
}
