package converter

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/requirement"
)

const wheelMetadata = `Metadata-Version: 2.1
Name: Example_Pkg
Version: 1.0.0
Requires-Python: >=3.8
Provides-Extra: test
Provides-Extra: Security
Requires-Dist: foo>=1.0
Requires-Dist: bar; extra == "test"
Requires-Dist: bar; extra == "security"
Requires-Dist: baz (<2); python_version < "3.10"
Requires-Dist: qux; python_version < "3.10" and extra == 'test'

Long description with: colons
Requires-Dist: ignored
`

func TestParseMetadata(t *testing.T) {
	root, err := ParseMetadata(strings.NewReader(wheelMetadata))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if root.Name != "Example_Pkg" || root.Version != "1.0.0" || root.RequiresPython != ">=3.8" {
		t.Errorf("unexpected identity %+v", root)
	}
	if !reflect.DeepEqual(root.Extras, []string{"test", "security"}) {
		t.Errorf("Extras = %v", root.Extras)
	}

	got := root.Strings()
	want := []string{
		"foo>=1.0",
		`bar; extra == "test"`,
		`bar; extra == "security"`,
		`baz<2; python_version < "3.10"`,
		`qux; python_version < "3.10" and extra == "test"`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Strings() =\n%q\nwant\n%q", got, want)
	}
}

func TestParseMetadataMergesEnvs(t *testing.T) {
	root, err := ParseMetadata(strings.NewReader(wheelMetadata))
	if err != nil {
		t.Fatal(err)
	}
	var bar *Dependency
	for i := range root.Dependencies {
		if root.Dependencies[i].Requirement.Name == "bar" {
			bar = &root.Dependencies[i]
		}
	}
	if bar == nil {
		t.Fatal("bar missing")
	}
	if !reflect.DeepEqual(bar.Envs, []string{"test", "security"}) {
		t.Errorf("bar.Envs = %v", bar.Envs)
	}
	if bar.Main() {
		t.Error("bar should not be a main dependency")
	}
	if got := bar.String(); got != `bar; extra == "test" or extra == "security"` {
		t.Errorf("String() = %q", got)
	}
}

func TestParseMetadataContinuation(t *testing.T) {
	doc := "Name: pkg\nVersion: 1.0\nRequires-Dist: foo;\n  python_version >= '3'\n\n"
	root, err := ParseMetadata(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if got := root.Strings(); len(got) != 1 || got[0] != `foo; python_version >= "3"` {
		t.Errorf("Strings() = %q", got)
	}
}

func TestParseMetadataKeepsUnparsedRaw(t *testing.T) {
	doc := "Name: pkg\n" +
		"Requires-Dist: foo>=1.0; platform_tag == 'x'\n" +
		"Requires-Dist: [broken\n" +
		"Requires-Dist: bar>=2\n"
	root, err := ParseMetadata(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	want := []string{"foo>=1.0; platform_tag == 'x'", "[broken", "bar>=2"}
	if got := root.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("Strings() = %q, want %q", got, want)
	}
	if !root.Dependencies[0].Main() || root.Dependencies[0].Raw == "" {
		t.Errorf("unparsed dependency = %+v", root.Dependencies[0])
	}
}

func TestParseMetadataSkipsMalformedLines(t *testing.T) {
	doc := "Name: pkg\nnot a header\nRequires-Dist: foo\n"
	root, err := ParseMetadata(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if got := root.Strings(); len(got) != 1 || got[0] != "foo" {
		t.Errorf("Strings() = %q", got)
	}
}

func TestDependencySplit(t *testing.T) {
	d := Dependency{Requirement: requirement.MustParse("foo>=1"), Envs: []string{MainEnv, "test"}}
	parts := d.Split()
	if len(parts) != 2 {
		t.Fatalf("Split() returned %d parts", len(parts))
	}
	if parts[0].String() != "foo>=1" {
		t.Errorf("main part = %q", parts[0].String())
	}
	if parts[1].String() != `foo>=1; extra == "test"` {
		t.Errorf("extra part = %q", parts[1].String())
	}
	// A main env makes the combined dependency unconditional.
	if d.String() != "foo>=1" {
		t.Errorf("combined = %q", d.String())
	}
}

func TestDependencyStringGroupsOr(t *testing.T) {
	d := Dependency{
		Requirement: requirement.MustParse(`foo; os_name == "nt" or os_name == "posix"`),
		Envs:        []string{"test"},
	}
	want := `foo; (os_name == "nt" or os_name == "posix") and extra == "test"`
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseRequiresTxt(t *testing.T) {
	txt := `click>=7
# comment

[test]
pytest>=6

[:python_version < "3"]
futures

[Security:sys_platform == "win32"]
pywin32
`
	root := &Root{}
	if err := parseRequiresTxt(root, strings.NewReader(txt)); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"click>=7",
		`pytest>=6; extra == "test"`,
		`futures; python_version < "3"`,
		`pywin32; sys_platform == "win32" and extra == "security"`,
	}
	if got := root.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("Strings() =\n%q\nwant\n%q", got, want)
	}
	if !reflect.DeepEqual(root.Extras, []string{"test", "security"}) {
		t.Errorf("Extras = %v", root.Extras)
	}
}

func TestParseRequiresTxtKeepsUnparsedRaw(t *testing.T) {
	txt := `foo; platform_tag == "x"
[test]
bar; platform_tag == "y"
[:platform_tag == "z"]
baz
`
	root := &Root{}
	if err := parseRequiresTxt(root, strings.NewReader(txt)); err != nil {
		t.Fatal(err)
	}
	want := []string{
		`foo; platform_tag == "x"`,
		`bar; (platform_tag == "y") and extra == "test"`,
		`baz; (platform_tag == "z")`,
	}
	if got := root.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("Strings() =\n%q\nwant\n%q", got, want)
	}
}

// fixture helpers

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, body)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func tarBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		io.WriteString(tw, body)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write(tarBytes(t, files))
	gw.Close()
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeTarXz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	xw.Write(tarBytes(t, files))
	xw.Close()
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

const sdistPKGInfo = "Metadata-Version: 1.1\nName: pkg\nVersion: 1.0.0\n\n"

func TestMetadataLoad(t *testing.T) {
	dir := t.TempDir()

	wheel := filepath.Join(dir, "pkg-1.0.0-py3-none-any.whl")
	writeZip(t, wheel, map[string]string{
		"pkg/__init__.py":              "",
		"pkg-1.0.0.dist-info/METADATA": "Name: pkg\nVersion: 1.0.0\nRequires-Dist: foo>=1.0\nRequires-Dist: bar; extra == 'test'\n",
		"pkg-1.0.0.dist-info/RECORD":   "",
	})

	sdist := filepath.Join(dir, "pkg-1.0.0.tar.gz")
	writeTarGz(t, sdist, map[string]string{
		"pkg-1.0.0/PKG-INFO":                  sdistPKGInfo,
		"pkg-1.0.0/pkg.egg-info/PKG-INFO":     sdistPKGInfo,
		"pkg-1.0.0/pkg.egg-info/requires.txt": "foo>=1.0\n[test]\nbar\n",
		"pkg-1.0.0/setup.py":                  "",
	})

	xzSdist := filepath.Join(dir, "pkg-1.0.0.tar.xz")
	writeTarXz(t, xzSdist, map[string]string{
		"pkg-1.0.0/PKG-INFO": "Metadata-Version: 2.2\nName: pkg\nVersion: 1.0.0\nRequires-Dist: foo>=1.0\nRequires-Dist: bar; extra == \"test\"\n",
	})

	egg := filepath.Join(dir, "pkg-1.0.0-py3.8.egg")
	writeZip(t, egg, map[string]string{
		"EGG-INFO/PKG-INFO":     sdistPKGInfo,
		"EGG-INFO/requires.txt": "foo>=1.0\n\n[test]\nbar\n",
	})

	want := []string{"foo>=1.0", `bar; extra == "test"`}
	for _, p := range []string{wheel, sdist, xzSdist, egg} {
		t.Run(filepath.Base(p), func(t *testing.T) {
			root, err := Metadata{}.Load(p)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if root.Name != "pkg" || root.Version != "1.0.0" {
				t.Errorf("identity = %s %s", root.Name, root.Version)
			}
			if got := root.Strings(); !reflect.DeepEqual(got, want) {
				t.Errorf("Strings() = %q, want %q", got, want)
			}
		})
	}
}

func TestMetadataLoadBareFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "PKG-INFO")
	os.WriteFile(p, []byte("Name: pkg\nVersion: 2.0\nRequires-Dist: foo\n"), 0644)

	root, err := Metadata{}.Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if root.Version != "2.0" || len(root.Dependencies) != 1 {
		t.Errorf("unexpected root %+v", root)
	}
}

func TestMetadataLoadErrors(t *testing.T) {
	dir := t.TempDir()

	noMeta := filepath.Join(dir, "pkg-1.0.0.zip")
	writeZip(t, noMeta, map[string]string{"pkg-1.0.0/setup.py": ""})

	corrupt := filepath.Join(dir, "pkg-1.0.0.tar.gz")
	os.WriteFile(corrupt, []byte("not gzip"), 0644)

	unknown := filepath.Join(dir, "pkg-1.0.0.rpm")
	os.WriteFile(unknown, []byte("x"), 0644)

	for _, p := range []string{noMeta, corrupt, unknown, filepath.Join(dir, "missing.whl")} {
		t.Run(filepath.Base(p), func(t *testing.T) {
			_, err := Metadata{}.Load(p)
			if !errs.Is(err, errs.ErrCodeInvalidArchive) {
				t.Errorf("Load(%s) error = %v, want INVALID_ARCHIVE", filepath.Base(p), err)
			}
		})
	}
}

func TestMetadataRank(t *testing.T) {
	members := []member{
		{name: "pkg-1.0/src/pkg.egg-info/PKG-INFO", data: []byte("a")},
		{name: "pkg-1.0/PKG-INFO", data: []byte("b")},
		{name: "pkg-1.0/tests/data/other.dist-info/METADATA", data: []byte("c")},
	}
	m, ok := pickMetadata(members)
	if !ok || m.name != "pkg-1.0/PKG-INFO" {
		t.Errorf("pickMetadata = %q, %v", m.name, ok)
	}
}
