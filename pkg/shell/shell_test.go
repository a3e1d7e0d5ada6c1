// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shell

import (
	"strings"
	"testing"
)

func TestExecuteCommand(t *testing.T) {
	tests := []struct {
		name         string
		cmd          string
		args         []string
		wantExitCode int
		wantStdout   string
	}{
		{
			name:         "Success with output",
			cmd:          "echo",
			args:         []string{"hello"},
			wantExitCode: 0,
			wantStdout:   "hello\n",
		},
		{
			name:         "Non-zero exit",
			cmd:          "false",
			args:         nil,
			wantExitCode: 1,
		},
		{
			name:         "Missing program",
			cmd:          "definitely-not-a-real-program-xyz",
			args:         nil,
			wantExitCode: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ExecuteCommand(tt.cmd, tt.args...)
			if res.ExitCode != tt.wantExitCode {
				t.Errorf("ExitCode = %d, want %d (stderr: %q)", res.ExitCode, tt.wantExitCode, res.Stderr)
			}
			if tt.wantStdout != "" && res.Stdout != tt.wantStdout {
				t.Errorf("Stdout = %q, want %q", res.Stdout, tt.wantStdout)
			}
		})
	}
}

func TestCommandSetInput(t *testing.T) {
	cmd := NewCommand("cat")
	cmd.SetInput("piped input")
	res := cmd.Execute()
	if res.ExitCode != 0 {
		t.Fatalf("cat failed: %s", res.Stderr)
	}
	if res.Stdout != "piped input" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "piped input")
	}
}

func TestRandomString(t *testing.T) {
	s := RandomString(8)
	if len(s) != 8 {
		t.Fatalf("len = %d, want 8", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(randomCharset, r) {
			t.Errorf("unexpected character %q in %q", r, s)
		}
	}
	if RandomString(8) == s && RandomString(8) == s {
		t.Errorf("RandomString returned the same value repeatedly: %q", s)
	}
}
