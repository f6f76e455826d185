// Copyright 2026 The CUE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package txtartest runs tests driven by txtar archives with golden output
// files.
package txtartest

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rogpeppe/go-internal/txtar"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/internal/exprtest"
)

// A TxTarTest represents a test run that processes all txtar archives in a
// directory.
type TxTarTest struct {
	// Root is the root directory to search for txtar archives.
	Root string

	// Name is a unique name for this test. The golden file for this test is
	// derived from the out/<name> file in the archive.
	Name string

	// Update forces golden files to be updated.
	Update bool

	// Skip maps test names to the reason for skipping them.
	Skip map[string]string
}

// A Test represents a single archive.
type Test struct {
	// Allow Test to be used as a T.
	*testing.T

	prefix   string
	buf      *bytes.Buffer // the default buffer
	outFiles []file

	Archive *txtar.Archive

	// Dir is the directory of the archive file.
	Dir string
}

type file struct {
	name string
	buf  *bytes.Buffer
}

// Write implements io.Writer by writing to the output for the test, which
// is compared against the out/<name> file of the archive.
func (t *Test) Write(b []byte) (n int, err error) {
	if t.buf == nil {
		t.buf = &bytes.Buffer{}
		t.outFiles = append(t.outFiles, file{t.prefix, t.buf})
	}
	return t.buf.Write(b)
}

// HasTag reports whether the archive comment contains the line #key.
func (t *Test) HasTag(key string) bool {
	prefix := []byte("#" + key)
	s := bufio.NewScanner(bytes.NewReader(t.Archive.Comment))
	for s.Scan() {
		if bytes.Equal(bytes.TrimSpace(s.Bytes()), prefix) {
			return true
		}
	}
	return false
}

// Value returns the value of the comment line #key: value.
func (t *Test) Value(key string) (value string, ok bool) {
	prefix := []byte("#" + key + ":")
	s := bufio.NewScanner(bytes.NewReader(t.Archive.Comment))
	for s.Scan() {
		b := s.Bytes()
		if bytes.HasPrefix(b, prefix) {
			return string(bytes.TrimSpace(b[len(prefix):])), true
		}
	}
	return "", false
}

// File returns the contents of the named archive file.
func (t *Test) File(name string) ([]byte, bool) {
	for _, f := range t.Archive.Files {
		if f.Name == name {
			return f.Data, true
		}
	}
	return nil, false
}

// Inputs returns the names of the archive files that are not outputs.
func (t *Test) Inputs() []string {
	var names []string
	for _, f := range t.Archive.Files {
		if !strings.HasPrefix(f.Name, "out/") {
			names = append(names, f.Name)
		}
	}
	return names
}

// WriteErrors writes err to the test output, one error per line.
func (t *Test) WriteErrors(err error) {
	if err != nil {
		errors.Print(t, err)
	}
}

// Writer returns a writer for the output file out/<testname>/name.
func (t *Test) Writer(name string) *bytes.Buffer {
	switch name {
	case "":
		name = t.prefix
	default:
		name = path.Join(t.prefix, name)
	}
	for _, f := range t.outFiles {
		if f.name == name {
			return f.buf
		}
	}
	w := &bytes.Buffer{}
	t.outFiles = append(t.outFiles, file{name, w})
	if name == t.prefix {
		t.buf = w
	}
	return w
}

// Run runs f for each txtar archive under x.Root and compares the output
// written to the Test with the golden files of the archive.
func (x *TxTarTest) Run(t *testing.T, f func(tc *Test)) {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	err = filepath.WalkDir(x.Root, func(fullpath string, d os.DirEntry, err error) error {
		if err != nil {
			t.Fatal(err)
		}
		if d.IsDir() || filepath.Ext(fullpath) != ".txtar" {
			return nil
		}

		str := filepath.ToSlash(fullpath)
		p := strings.Index(str, "testdata/")
		testName := str[p+len("testdata/") : len(str)-len(".txtar")]

		t.Run(testName, func(t *testing.T) {
			a, err := txtar.ParseFile(fullpath)
			if err != nil {
				t.Fatalf("error parsing txtar file: %v", err)
			}

			tc := &Test{
				T:       t,
				Archive: a,
				Dir:     filepath.Dir(filepath.Join(dir, fullpath)),
				prefix:  path.Join("out", x.Name),
			}

			if tc.HasTag("skip") {
				t.Skip()
			}
			if msg, ok := x.Skip[testName]; ok {
				t.Skip(msg)
			}

			f(tc)

			update := false
			for _, sub := range tc.outFiles {
				var gold *txtar.File
				for i, f := range a.Files {
					if f.Name == sub.name {
						gold = &a.Files[i]
					}
				}

				result := sub.buf.Bytes()

				switch {
				case gold == nil:
					a.Files = append(a.Files, txtar.File{Name: sub.name})
					gold = &a.Files[len(a.Files)-1]

				case bytes.Equal(gold.Data, result):
					continue
				}

				if x.Update || exprtest.UpdateGoldenFiles {
					update = true
					gold.Data = result
					continue
				}

				t.Errorf("result for %s differs: (-want +got)\n%s",
					sub.name,
					cmp.Diff(string(gold.Data), string(result)))
			}

			if update {
				if err := os.WriteFile(fullpath, txtar.Format(a), 0o644); err != nil {
					t.Fatal(err)
				}
			}
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
