//go:build linux

package main

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/DaGenix/closefds/internal/ref"
	"github.com/DaGenix/closefds/internal/testutil"
)

func TestReadEnvFile(t *testing.T) {
	for _, tc := range []struct {
		name    string
		path    string
		want    envMap
		wantErr error
	}{
		{
			name: "empty",
			path: testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "empty"), ""),
		},
		{
			name: "values",
			path: testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "yaml"), "# comment\nfirst: 1\nkey: value\nunset: ~\n"),
			want: envMap{
				"first": ref.Ref("1"),
				"key":   ref.Ref("value"),
				"unset": nil,
			},
		},
		{
			name:    "missing",
			path:    filepath.Join(t.TempDir(), "missing"),
			wantErr: fs.ErrNotExist,
		},
		{
			name:    "malformed",
			path:    testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "malformed"), "{\n"),
			wantErr: cmpopts.AnyError,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := readEnvFile(tc.path)

			if diff := cmp.Diff(tc.wantErr, err, cmpopts.EquateErrors()); diff != "" {
				t.Errorf("readEnvFile() error diff (-want +got):\n%s", diff)
			}

			if err == nil {
				if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("readEnvFile() result diff (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestBuildEnviron(t *testing.T) {
	for _, tc := range []struct {
		name    string
		base    []string
		files   []string
		literal []string
		want    []string
		wantErr error
	}{
		{name: "empty"},
		{
			name: "base only",
			base: []string{"b=2", "a=1"},
			want: []string{"a=1", "b=2"},
		},
		{
			name: "files",
			base: []string{"local=x"},
			files: []string{
				testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "empty"), ""),
				testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "yaml"), "first: 1\nlocal: override\n"),
				testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "yaml"), "first: 2\npassthrough: ~\n"),
			},
			want: []string{"first=2", "local=override"},
		},
		{
			name: "file not found",
			files: []string{
				filepath.Join(t.TempDir(), "missing"),
			},
			wantErr: fs.ErrNotExist,
		},
		{
			name: "literals",
			base: []string{"x=hello"},
			literal: []string{
				"a=1",
				"x",
				"c=3",
			},
			want: []string{"a=1", "c=3", "x=hello"},
		},
		{
			name: "mixed",
			base: []string{"base=a"},
			files: []string{
				testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "yaml"), "---\nfile: b\n"),
			},
			literal: []string{
				"literal=c",
			},
			want: []string{"base=a", "file=b", "literal=c"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := buildEnviron(tc.base, tc.files, tc.literal)

			if diff := cmp.Diff(tc.wantErr, err, cmpopts.EquateErrors()); diff != "" {
				t.Errorf("buildEnviron() error diff (-want +got):\n%s", diff)
			}

			if err == nil {
				if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("buildEnviron() result diff (-want +got):\n%s", diff)
				}
			}
		})
	}
}
