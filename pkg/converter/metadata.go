package converter

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/marker"
	"github.com/matzehuels/reposolve/pkg/requirement"
)

// Metadata reads core metadata (METADATA, PKG-INFO) and setuptools
// requires.txt files from distribution archives. Supported inputs are
// .whl, .egg, .zip, .tar, .tar.gz, .tgz, .tar.bz2 and .tar.xz archives as
// well as bare METADATA or PKG-INFO files.
type Metadata struct{}

// Ensure Metadata implements Converter.
var _ Converter = Metadata{}

// Load reads path and returns its declared dependencies.
func (Metadata) Load(path string) (*Root, error) {
	switch filepath.Base(path) {
	case "METADATA", "PKG-INFO":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot read %s", path)
		}
		return ParseMetadata(bytes.NewReader(data))
	}

	members, err := readMembers(path)
	if err != nil {
		return nil, err
	}
	return fromMembers(path, members)
}

func fromMembers(path string, members []member) (*Root, error) {
	meta, hasMeta := pickMetadata(members)
	reqs, hasReqs := pickRequires(members)
	if !hasMeta && !hasReqs {
		return nil, errs.New(errs.ErrCodeInvalidArchive, "no metadata found in %s", filepath.Base(path))
	}

	root := &Root{}
	if hasMeta {
		parsed, err := ParseMetadata(bytes.NewReader(meta.data))
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot parse %s in %s", meta.name, filepath.Base(path))
		}
		root = parsed
	}
	// Metadata 1.x has no Requires-Dist; setuptools keeps them in requires.txt.
	if len(root.Dependencies) == 0 && hasReqs {
		if err := parseRequiresTxt(root, bytes.NewReader(reqs.data)); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot parse %s in %s", reqs.name, filepath.Base(path))
		}
	}
	return root, nil
}

// ParseMetadata parses a core metadata document (RFC 822 style headers).
// Reading stops at the first blank line; the description body is ignored.
// Requires-Dist entries that cannot be parsed are kept as raw strings.
func ParseMetadata(r io.Reader) (*Root, error) {
	headers, err := readHeaders(r)
	if err != nil {
		return nil, err
	}

	root := &Root{}
	for _, h := range headers {
		switch strings.ToLower(h.key) {
		case "name":
			root.Name = h.value
		case "version":
			root.Version = h.value
		case "requires-python":
			root.RequiresPython = h.value
		case "provides-extra":
			root.Extras = append(root.Extras, marker.NormalizeExtra(h.value))
		case "requires-dist":
			req, err := requirement.Parse(h.value)
			if err != nil {
				root.addRaw(h.value)
				continue
			}
			root.addRequirement(req)
		}
	}
	return root, nil
}

type header struct{ key, value string }

func readHeaders(r io.Reader) ([]header, error) {
	var out []header
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(out) > 0 {
				last := &out[len(out)-1]
				last.value += " " + strings.TrimSpace(line)
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out = append(out, header{key: strings.TrimSpace(key), value: strings.TrimSpace(value)})
	}
	return out, sc.Err()
}

// parseRequiresTxt reads the setuptools requires.txt format:
//
//	click>=7
//	[test]
//	pytest
//	[security:sys_platform == "win32"]
//	pywin32
//
// Lines that do not parse, and every line under a section whose condition
// does not parse, are kept raw with the section condition appended.
func parseRequiresTxt(root *Root, r io.Reader) error {
	env := MainEnv
	var section marker.Expr
	var sectionRaw string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name, cond, _ := strings.Cut(line[1:len(line)-1], ":")
			env, section, sectionRaw = MainEnv, nil, ""
			if name = strings.TrimSpace(name); name != "" {
				env = marker.NormalizeExtra(name)
				if !slices.Contains(root.Extras, env) {
					root.Extras = append(root.Extras, env)
				}
			}
			if cond = strings.TrimSpace(cond); cond != "" {
				expr, err := marker.Parse(cond)
				if err != nil {
					sectionRaw = cond
				} else {
					section = expr
				}
			}
			continue
		}

		req, err := requirement.Parse(line)
		if err != nil || sectionRaw != "" {
			root.addRaw(withSection(line, env, section, sectionRaw))
			continue
		}
		req = req.WithMarker(marker.Join(req.Marker, section))
		if env == MainEnv {
			root.addRequirement(req)
		} else {
			root.add(req, env)
		}
	}
	return sc.Err()
}

// withSection appends the conditions of a requires.txt section to an
// unparsed line, keeping the line's own marker text intact.
func withSection(line, env string, section marker.Expr, sectionRaw string) string {
	var conds []string
	if section != nil {
		conds = append(conds, "("+section.String()+")")
	}
	if sectionRaw != "" {
		conds = append(conds, "("+sectionRaw+")")
	}
	if env != MainEnv {
		conds = append(conds, marker.ExtraEquals(env).String())
	}
	if len(conds) == 0 {
		return line
	}
	head, tail, ok := strings.Cut(line, ";")
	if ok {
		conds = append([]string{"(" + strings.TrimSpace(tail) + ")"}, conds...)
	}
	return strings.TrimSpace(head) + "; " + strings.Join(conds, " and ")
}
