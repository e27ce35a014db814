package release

import (
	"slices"
	"testing"
	"time"
)

func artifacts(versions ...string) []Artifact {
	out := make([]Artifact, len(versions))
	for i, v := range versions {
		out[i] = Artifact{Version: v, Hash: "h-" + v, Filename: "pkg-" + v + ".tar.gz"}
	}
	return out
}

func TestBuildSortsNewestFirst(t *testing.T) {
	got, _ := Build(Query{RawName: "pkg"}, artifacts("1.0", "2.0.1", "0.9", "2.0", "10.0"), false)
	want := []string{"10.0", "2.0.1", "2.0", "1.0", "0.9"}
	if v := Versions(got); !slices.Equal(v, want) {
		t.Errorf("Versions = %v, want %v", v, want)
	}
	for i := 1; i < len(got); i++ {
		if Compare(got[i-1], got[i]) <= 0 {
			t.Errorf("releases not strictly descending at %d: %s, %s", i, got[i-1], got[i])
		}
	}
}

func TestBuildMergesHashesPerVersion(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := old.Add(time.Hour)
	arts := []Artifact{
		{Filename: "pkg-1.0.0.tar.gz", Version: "1.0.0", Hash: "aaa", Time: old},
		{Filename: "pkg-1.0.0.whl", Version: "1.0.0", Hash: "bbb", Time: newer},
		{Filename: "pkg-1.0.whl", Version: "1.0", Hash: "bbb", Time: old},
	}

	got, _ := Build(Query{RawName: "Pkg", Extra: "dev"}, arts, false)
	if len(got) != 1 {
		t.Fatalf("got %d releases, want 1", len(got))
	}
	r := got[0]
	if !slices.Equal(r.Hashes, []string{"aaa", "bbb"}) {
		t.Errorf("Hashes = %v, want [aaa bbb]", r.Hashes)
	}
	if !r.Time.Equal(newer) {
		t.Errorf("Time = %v, want %v", r.Time, newer)
	}
	if r.RawName != "Pkg" || r.Name != "pkg" || r.Extra != "dev" {
		t.Errorf("unexpected identity %+v", r)
	}
}

func TestBuildPrereleasePolicy(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		allow   bool
		request bool
		want    []string
	}{
		{"stable only", []string{"1.0", "2.0"}, false, false, []string{"2.0", "1.0"}},
		{"mixed excludes prereleases", []string{"1.0", "2.0b1", "2.0.dev3"}, false, false, []string{"1.0"}},
		{"repository allows", []string{"1.0", "2.0b1"}, true, false, []string{"2.0b1", "1.0"}},
		{"request allows", []string{"1.0", "2.0rc1"}, false, true, []string{"2.0rc1", "1.0"}},
		{"only prereleases fall back", []string{"19.3b0", "18.9b0"}, false, false, []string{"19.3b0", "18.9b0"}},
		{"empty", nil, false, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Build(Query{RawName: "pkg", Prereleases: tt.request}, artifacts(tt.input...), tt.allow)
			if v := Versions(got); !slices.Equal(v, tt.want) {
				t.Errorf("Versions = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestBuildDropsUnparseableVersions(t *testing.T) {
	got, dropped := Build(Query{RawName: "pkg"}, artifacts("1.0", "not-a-version", "2.0"), false)
	if v := Versions(got); !slices.Equal(v, []string{"2.0", "1.0"}) {
		t.Errorf("Versions = %v", v)
	}
	if len(dropped) != 1 || dropped[0].Version != "not-a-version" {
		t.Errorf("dropped = %v, want the unparseable artifact", dropped)
	}
}

func TestStable(t *testing.T) {
	all, _ := Build(Query{RawName: "pkg"}, artifacts("1.0", "2.0b1", "1.1", "3.0.dev1"), true)
	if v := Versions(Stable(all)); !slices.Equal(v, []string{"1.1", "1.0"}) {
		t.Errorf("Stable = %v", v)
	}
	if got := Stable(nil); got != nil {
		t.Errorf("Stable(nil) = %v", got)
	}
}

func TestReleaseString(t *testing.T) {
	got, _ := Build(Query{RawName: "Black"}, artifacts("22.1.0"), false)
	if s := got[0].String(); s != "Black==22.1.0" {
		t.Errorf("String() = %q", s)
	}
}

func TestMerge(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a, _ := Build(Query{RawName: "pkg"}, []Artifact{
		{Version: "1.0", Hash: "a1", Time: old},
		{Version: "2.0", Hash: "a2", Time: old},
	}, false)
	b, _ := Build(Query{RawName: "PKG"}, []Artifact{
		{Version: "1.0.0", Hash: "b1", Time: old.Add(time.Hour)},
		{Version: "1.0", Hash: "a1", Time: old},
		{Version: "3.0", Hash: "b3", Time: old},
	}, false)

	got := Merge(a, b)
	if v := Versions(got); !slices.Equal(v, []string{"3.0", "2.0", "1.0"}) {
		t.Fatalf("Versions = %v", v)
	}
	one := got[2]
	if !slices.Equal(one.Hashes, []string{"a1", "b1"}) {
		t.Errorf("Hashes = %v, want [a1 b1]", one.Hashes)
	}
	if !one.Time.Equal(old.Add(time.Hour)) {
		t.Errorf("Time = %v", one.Time)
	}
	if one.RawName != "pkg" {
		t.Errorf("RawName = %q, want first list's spelling", one.RawName)
	}

	// inputs are not modified
	if len(a[1].Hashes) != 1 {
		t.Errorf("Merge modified its input: %v", a[1].Hashes)
	}
}
