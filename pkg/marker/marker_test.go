package marker

import (
	"testing"

	errs "github.com/matzehuels/reposolve/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`extra == "test"`, `extra == "test"`},
		{`extra=='test'`, `extra == "test"`},
		{`python_version < "3.8"`, `python_version < "3.8"`},
		{`"linux" in sys_platform`, `"linux" in sys_platform`},
		{`os_name not in "nt java"`, `os_name not in "nt java"`},
		{`sys.platform == "win32"`, `sys_platform == "win32"`},
		{`python_version >= "3" and extra == "dev"`, `python_version >= "3" and extra == "dev"`},
		{`(extra == "a" or extra == "b") and os_name == "posix"`, `(extra == "a" or extra == "b") and os_name == "posix"`},
		{`extra == "a" or extra == "b" and os_name == "posix"`, `extra == "a" or extra == "b" and os_name == "posix"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	e := MustParse(`extra == "a" or extra == "b" and os_name == "posix"`)
	or, ok := e.(Or)
	if !ok {
		t.Fatalf("top node = %T, want Or", e)
	}
	if _, ok := or.Right.(And); !ok {
		t.Errorf("right node = %T, want And", or.Right)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		``,
		`extra ==`,
		`extra == "test`,
		`"a" == "b"`,
		`unknown_var == "x"`,
		`python_version <> "3"`,
		`(extra == "a"`,
		`extra == "a" extra == "b"`,
		`os_name not "nt"`,
		`python_version @ "3"`,
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", in)
			}
			if !errs.Is(err, errs.ErrCodeInvalidMarker) {
				t.Errorf("expected INVALID_MARKER, got %v", err)
			}
		})
	}
}

func TestExtras(t *testing.T) {
	tests := []struct {
		marker      string
		extras      []string
		unsupported bool
	}{
		{`extra == "test"`, []string{"test"}, false},
		{`"Dev_Tools" == extra`, []string{"dev-tools"}, false},
		{`python_version < "3.8"`, nil, false},
		{`python_version < "3.8" and extra == "tls"`, []string{"tls"}, false},
		{`extra == "a" or extra == "b" or extra == "a"`, []string{"a", "b"}, false},
		{`extra != "test"`, nil, true},
		{`extra in "test dev"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			c := Extras(MustParse(tt.marker))
			if c.Unsupported != tt.unsupported {
				t.Errorf("Unsupported = %v, want %v", c.Unsupported, tt.unsupported)
			}
			if len(c.Extras) != len(tt.extras) {
				t.Fatalf("Extras = %v, want %v", c.Extras, tt.extras)
			}
			for i := range c.Extras {
				if c.Extras[i] != tt.extras[i] {
					t.Errorf("Extras[%d] = %q, want %q", i, c.Extras[i], tt.extras[i])
				}
			}
		})
	}
}

func TestExtrasNil(t *testing.T) {
	if c := Extras(nil); c.Conditioned() || c.Unsupported {
		t.Errorf("Extras(nil) = %+v, want empty condition", c)
	}
}

func TestConditionAllows(t *testing.T) {
	none := Condition{}
	test := Condition{Extras: []string{"test"}}

	tests := []struct {
		name  string
		cond  Condition
		extra string
		want  bool
	}{
		{"none/none", none, "", true},
		{"none/some", none, "test", false},
		{"some/none", test, "", false},
		{"some/same", test, "test", true},
		{"some/same unnormalized", test, "TEST", true},
		{"some/other", test, "docs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Allows(tt.extra); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.extra, got, tt.want)
			}
		})
	}
}

func TestWithoutExtras(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`extra == "test"`, ""},
		{`python_version < "3.8" and extra == "tls"`, `python_version < "3.8"`},
		{`(extra == "a" or extra == "b") and os_name == "posix"`, `os_name == "posix"`},
		{`os_name == "nt"`, `os_name == "nt"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := WithoutExtras(MustParse(tt.in))
			if tt.want == "" {
				if got != nil {
					t.Errorf("WithoutExtras = %q, want nil", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("WithoutExtras = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	if Join(nil, nil) != nil {
		t.Error("Join(nil, nil) should be nil")
	}
	e := Join(MustParse(`os_name == "nt"`), nil, ExtraEquals("dev"))
	if got, want := e.String(), `os_name == "nt" and extra == "dev"`; got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}
}

func TestEvaluate(t *testing.T) {
	env := PythonEnvironment("3.11")

	tests := []struct {
		marker string
		extra  string
		want   bool
	}{
		{`python_version >= "3.8"`, "", true},
		{`python_version < "3.8"`, "", false},
		{`python_version == "3.11"`, "", true},
		{`python_full_version >= "3.11.0"`, "", true},
		{`"3.12" > python_version`, "", true},
		{`sys_platform == "win32"`, "", false},
		{`sys_platform != "win32"`, "", true},
		{`"linux" in sys_platform`, "", true},
		{`os_name not in "nt java"`, "", true},
		{`platform_python_implementation == "CPython" and python_version < "3"`, "", false},
		{`sys_platform == "win32" or python_version >= "3"`, "", true},
		{`extra == "test"`, "test", true},
		{`extra == "Test"`, "test", true},
		{`extra == "test"`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			got, err := Evaluate(MustParse(tt.marker), env.With(VarExtra, tt.extra))
			if err != nil {
				t.Fatalf("Evaluate error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateNil(t *testing.T) {
	ok, err := Evaluate(nil, nil)
	if err != nil || !ok {
		t.Errorf("Evaluate(nil) = %v, %v; want true, nil", ok, err)
	}
}

func TestEvaluateCompatibleNeedsVersion(t *testing.T) {
	_, err := Evaluate(MustParse(`os_name ~= "posix"`), PythonEnvironment("3.11"))
	if !errs.Is(err, errs.ErrCodeInvalidMarker) {
		t.Errorf("expected INVALID_MARKER, got %v", err)
	}
}

func TestPythonEnvironment(t *testing.T) {
	env := PythonEnvironment("3.11.4")
	if env[VarPythonVersion] != "3.11" {
		t.Errorf("python_version = %q, want 3.11", env[VarPythonVersion])
	}
	if env[VarPythonFullVersion] != "3.11.4" {
		t.Errorf("python_full_version = %q, want 3.11.4", env[VarPythonFullVersion])
	}

	env = PythonEnvironment("3.9")
	if env[VarPythonFullVersion] != "3.9.0" {
		t.Errorf("python_full_version = %q, want 3.9.0", env[VarPythonFullVersion])
	}
}
