package schema

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleTitle(t *testing.T) {
	tests := []struct {
		module Module
		want   string
	}{
		{Module{Name: "ember-foo", Dir: "/repo/addons/foo"}, "ember-foo"},
		{Module{Name: "@team/ember-bar", Dir: "/repo/addons/bar"}, "team-ember-bar"}, // scoped package
		{Module{Dir: "/repo/engines/billing"}, "billing"},                            // falls back to dir
		{Module{Name: "has space", Dir: "/x"}, "has-space"},
		{Module{Name: "..", Dir: "/repo/addons/up"}, "-"},
		{Module{Name: ".", Dir: "/repo/addons/dot"}, "_"},
		{Module{Name: "a..b", Dir: "/repo/addons/ab"}, "a-b"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.module.Title())
	}
}

func TestModuleRef(t *testing.T) {
	m := Module{Name: "@a/b", Dir: "/repo/b"}
	assert.Equal(t, ModuleRef{Dir: "/repo/b", Title: "a-b"}, m.Ref())
	assert.Equal(t, "a-b", m.Ref().PathName())

	m.Segment = "a-b-0011aabb"
	assert.Equal(t, "a-b-0011aabb", m.Ref().PathName())
}

func TestUniqueSegments(t *testing.T) {
	refs := []ModuleRef{
		{Dir: "/r/x/shared", Title: "shared"},
		{Dir: "/r/y/shared", Title: "shared"},
		{Dir: "/r/z/Shared", Title: "Shared"}, // case-insensitive filesystems
		{Dir: "/r/forms", Title: "forms"},
	}

	got := UniqueSegments(refs)
	assert.Len(t, got, 4)
	assert.Equal(t, "forms", got["/r/forms"], "unique names are kept")

	seen := map[string]bool{}
	for _, r := range refs[:3] {
		name := got[r.Dir]
		assert.Regexp(t, `^(s|S)hared-[0-9a-f]{8}$`, name)
		assert.False(t, seen[strings.ToLower(name)], "duplicate segment %s", name)
		seen[strings.ToLower(name)] = true
	}

	assert.Equal(t, got, UniqueSegments(refs), "segments are stable across runs")
	assert.Equal(t, map[string]string{"/r/x/shared": "shared"}, UniqueSegments(refs[:1]))
}

func TestJobExcludes(t *testing.T) {
	job := Job{Exclude: regexp.MustCompile(`^(index\.js$|addon/)`)}
	assert.True(t, job.Excludes("index.js"))
	assert.True(t, job.Excludes("addon/components/x.js"))
	assert.False(t, job.Excludes("tests/unit/index.js"))
	assert.False(t, job.Excludes("lib/index.js"))

	assert.False(t, Job{}.Excludes("anything.js"), "nil pattern excludes nothing")
}

func TestReportConcat(t *testing.T) {
	a := Report{{File: "a.js"}}
	b := Report{{File: "b.js"}, {File: "c.js"}}

	got := a.Concat(b, nil)
	assert.Len(t, got, 3)
	assert.Equal(t, "c.js", got[2].File)

	got[0].File = "changed.js"
	assert.Equal(t, "a.js", a[0].File, "concat must not alias the receiver")
}

func TestOwnerViewAllRecords(t *testing.T) {
	o := OwnerView{
		Owner: "Team1",
		Categories: []CategoryView{
			{Category: AddonCategory, Modules: []ModuleView{{Report: Report{{File: "a.js"}}}}},
			{Category: TestsCategory, Modules: []ModuleView{{Failed: true}, {Report: Report{{File: "t.js"}}}}},
		},
	}
	recs := o.AllRecords()
	assert.Len(t, recs, 2)
	assert.Equal(t, "a.js", recs[0].File)
	assert.Equal(t, "t.js", recs[1].File)
}
