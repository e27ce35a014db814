package converter

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	errs "github.com/matzehuels/reposolve/pkg/errors"
)

// maxMemberSize bounds how much of a single metadata file is read.
const maxMemberSize = 8 << 20

// member is a metadata file read from an archive.
type member struct {
	name string // slash-separated path inside the archive
	data []byte
}

// wanted reports whether an archive member may hold metadata.
func wanted(name string) bool {
	switch path.Base(name) {
	case "METADATA", "PKG-INFO", "requires.txt":
		return true
	}
	return false
}

// readMembers extracts every metadata file from the archive at p.
func readMembers(p string) ([]member, error) {
	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".whl"), strings.HasSuffix(lower, ".egg"), strings.HasSuffix(lower, ".zip"):
		return readZip(p)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return readTar(p, func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) })
	case strings.HasSuffix(lower, ".tar.xz"):
		return readTar(p, func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) })
	case strings.HasSuffix(lower, ".tar.bz2"):
		return readTar(p, func(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r), nil })
	case strings.HasSuffix(lower, ".tar"):
		return readTar(p, func(r io.Reader) (io.Reader, error) { return r, nil })
	}
	return nil, errs.New(errs.ErrCodeInvalidArchive, "unsupported archive format: %s", filepath.Base(p))
}

func readZip(p string) ([]member, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot open %s", filepath.Base(p))
	}
	defer zr.Close()

	var out []member
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !wanted(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot read %s in %s", f.Name, filepath.Base(p))
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxMemberSize))
		rc.Close()
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot read %s in %s", f.Name, filepath.Base(p))
		}
		out = append(out, member{name: f.Name, data: data})
	}
	return out, nil
}

func readTar(p string, decompress func(io.Reader) (io.Reader, error)) ([]member, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot open %s", filepath.Base(p))
	}
	defer f.Close()

	r, err := decompress(f)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot decompress %s", filepath.Base(p))
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	var out []member
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot read %s", filepath.Base(p))
		}
		if hdr.Typeflag != tar.TypeReg || !wanted(hdr.Name) {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxMemberSize))
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "cannot read %s in %s", hdr.Name, filepath.Base(p))
		}
		out = append(out, member{name: strings.TrimPrefix(hdr.Name, "./"), data: data})
	}
	return out, nil
}

// metadataRank orders candidate metadata files; lower is better.
// Wheel METADATA beats an sdist's top-level PKG-INFO, which beats the
// PKG-INFO of a nested egg-info directory.
func metadataRank(name string) (int, bool) {
	dir, base := path.Split(name)
	dir = strings.TrimSuffix(dir, "/")
	depth := strings.Count(name, "/")
	switch {
	case base == "METADATA" && strings.HasSuffix(dir, ".dist-info") && depth == 1:
		return 0, true
	case base == "PKG-INFO" && (dir == "EGG-INFO" || depth == 1):
		return 1, true
	case base == "PKG-INFO" && strings.HasSuffix(dir, ".egg-info"):
		return 2 + depth, true
	}
	return 0, false
}

func pickMetadata(members []member) (member, bool) {
	best, bestRank, found := member{}, 0, false
	for _, m := range members {
		rank, ok := metadataRank(m.name)
		if ok && (!found || rank < bestRank) {
			best, bestRank, found = m, rank, true
		}
	}
	return best, found
}

func pickRequires(members []member) (member, bool) {
	best, found := member{}, false
	for _, m := range members {
		if path.Base(m.name) != "requires.txt" {
			continue
		}
		dir := path.Dir(m.name)
		if !strings.HasSuffix(dir, ".egg-info") && path.Base(dir) != "EGG-INFO" {
			continue
		}
		if !found || strings.Count(m.name, "/") < strings.Count(best.name, "/") {
			best, found = m, true
		}
	}
	return best, found
}
