package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/MeKo-Tech/census-contrib/internal/testutil"
)

const testAccession = "CxG-contrib-42"

// execute runs a fresh command tree and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	rootCmd := NewRootCommand()
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	return testutil.WriteFile(t, dir, name, []byte(content))
}

func writeMetadata(t *testing.T, dir string, nFeatures int) string {
	t.Helper()
	return writeFile(t, dir, "metadata.yaml", fmt.Sprintf(`id: %s
title: CLI test embedding
description: generated by the command tests
primary_contact:
  name: Test Person
  email: test@example.org
  affiliation: Example Institute
experiment_name: homo_sapiens
n_features: %d
data_type: obs_embedding
census_version: latest
`, testAccession, nFeatures))
}

// writeNPY writes a .npy file under dir.
func writeNPY(t *testing.T, dir, name, descr, shape string, data any) string {
	t.Helper()
	return testutil.WriteFile(t, dir, name, testutil.MustEncodeNPY(t, descr, shape, data))
}

// warnRecords returns the JSON log lines at WARN level.
func warnRecords(stderr string) []string {
	var out []string
	for line := range strings.Lines(stderr) {
		if strings.Contains(line, `"level":"WARN"`) {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}
