package main

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RowanDark/glyphpack/internal/env"
	"github.com/RowanDark/glyphpack/internal/record"
	"github.com/RowanDark/glyphpack/internal/rpc"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run(append([]string{productName}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeInput(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.py")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestBuildThenDecode(t *testing.T) {
	raw := []byte("import os\nprint(os.getcwd())\n")
	in := writeInput(t, raw)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")

	code, stdout, stderr := runCLI(t, "build", "--build", in, "-o", out, "--ptype", "sh")
	if code != 0 {
		t.Fatalf("build exited %d: %s", code, stderr)
	}
	if want := "[+] Encoded file saved in " + out + " (type: sh)\n"; stdout != want {
		t.Fatalf("unexpected stdout %q, want %q", stdout, want)
	}

	decoded := filepath.Join(dir, "decoded.py")
	code, _, stderr = runCLI(t, "decode", "-i", out, "-o", decoded)
	if code != 0 {
		t.Fatalf("decode exited %d: %s", code, stderr)
	}
	got, err := os.ReadFile(decoded)
	if err != nil {
		t.Fatalf("read decoded: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("decoded bytes differ: %q", got)
	}
}

func TestBuildDefaultsPayloadType(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	code, stdout, stderr := runCLI(t, "build", "--input", writeInput(t, []byte("x")), "--output", out)
	if code != 0 {
		t.Fatalf("build exited %d: %s", code, stderr)
	}
	if !strings.HasSuffix(stdout, "(type: python)\n") {
		t.Fatalf("expected default python ptype, got %q", stdout)
	}
}

func TestBuildMissingInputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	code, _, stderr := runCLI(t, "build", "-i", filepath.Join(t.TempDir(), "nope"), "-o", out)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "fetch stage") {
		t.Fatalf("expected failing stage in message, got %q", stderr)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err %v", err)
	}
}

func TestBuildFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote payload"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "out.json")
	code, _, stderr := runCLI(t, "build", "-i", srv.URL+"/stage.ps1", "-o", out, "--ptype", "powershell")
	if code != 0 {
		t.Fatalf("build exited %d: %s", code, stderr)
	}
	rec, err := record.ReadFile(out)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if rec.PayloadSize() != len("remote payload") {
		t.Fatalf("unexpected payload size %d", rec.PayloadSize())
	}
}

func TestBuildRemote(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	gs := rpc.NewServer(rpc.WithToken("tok")).GRPCServer()
	go func() { _ = gs.Serve(lis) }()
	defer gs.Stop()

	raw := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 5<<18)
	in := writeInput(t, raw)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	addr := lis.Addr().String()

	code, _, stderr := runCLI(t, "build", "-i", in, "-o", out, "--ptype", "pe", "--remote", addr, "--token", "tok")
	if code != 0 {
		t.Fatalf("remote build exited %d: %s", code, stderr)
	}
	decoded := filepath.Join(dir, "decoded.bin")
	code, _, stderr = runCLI(t, "decode", "-i", out, "-o", decoded, "--remote", addr, "--token", "tok")
	if code != 0 {
		t.Fatalf("remote decode exited %d: %s", code, stderr)
	}
	got, err := os.ReadFile(decoded)
	if err != nil {
		t.Fatalf("read decoded: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("decoded bytes differ: %x", got)
	}

	code, _, stderr = runCLI(t, "build", "-i", in, "-o", filepath.Join(dir, "denied.json"), "--remote", addr)
	if code != 1 || !strings.Contains(stderr, "encode stage") {
		t.Fatalf("expected encode stage failure without token, got %d: %s", code, stderr)
	}
}

func TestUsageErrors(t *testing.T) {
	cases := map[string][]string{
		"missing input":   {"build"},
		"unknown flag":    {"build", "--nope"},
		"unknown command": {"frobnicate"},
		"no command":      {},
		"version args":    {"version", "extra"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if code, _, _ := runCLI(t, args...); code != 2 {
				t.Fatalf("expected exit 2, got %d", code)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	for _, args := range [][]string{{"version"}, {"--version"}} {
		code, stdout, _ := runCLI(t, args...)
		if code != 0 {
			t.Fatalf("%v exited %d", args, code)
		}
		if stdout != versionString()+"\n" {
			t.Fatalf("%v printed %q", args, stdout)
		}
	}
}

func TestInspect(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	if code, _, stderr := runCLI(t, "build", "-i", writeInput(t, []byte("abcdef")), "-o", out, "--ptype", "bat"); code != 0 {
		t.Fatalf("build exited %d: %s", code, stderr)
	}
	code, stdout, stderr := runCLI(t, "inspect", "-i", out)
	if code != 0 {
		t.Fatalf("inspect exited %d: %s", code, stderr)
	}
	for _, want := range []string{"ptype:   bat", "payload: 6 bytes", "valid:   yes"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestDecodeRejectsTamperedRecord(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	doc := `{"p":"","m":{"key":1,"rot":9,"sub":"","ptype":"sh"}}`
	if err := os.WriteFile(in, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	code, _, stderr := runCLI(t, "decode", "-i", in, "-o", filepath.Join(dir, "out"))
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "invalid record") {
		t.Fatalf("expected invalid record message, got %q", stderr)
	}
}

func TestLegacyEnvironmentWarns(t *testing.T) {
	env.ResetWarningsForTesting()
	t.Cleanup(env.ResetWarningsForTesting)
	t.Setenv("GLYPH_PTYPE", "sh")

	out := filepath.Join(t.TempDir(), "out.json")
	code, stdout, stderr := runCLI(t, "build", "-i", writeInput(t, []byte("x")), "-o", out)
	if code != 0 {
		t.Fatalf("build exited %d: %s", code, stderr)
	}
	if !strings.HasSuffix(stdout, "(type: sh)\n") {
		t.Fatalf("expected legacy ptype to apply, got %q", stdout)
	}
	if !strings.Contains(stderr, "GLYPH_PTYPE is deprecated; use GLYPHPACK_PTYPE") {
		t.Fatalf("expected deprecation warning on stderr, got %q", stderr)
	}
}

func TestBrokenConfigOnlyAffectsCommandsThatNeedIt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "glyphpack.yml"), []byte("fetch: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)

	for _, args := range [][]string{{"version"}, {"--version"}, {"ops"}} {
		if code, _, stderr := runCLI(t, args...); code != 0 {
			t.Fatalf("%v exited %d with broken config: %s", args, code, stderr)
		}
	}
	code, _, stderr := runCLI(t, "build", "-i", writeInput(t, []byte("x")), "-o", filepath.Join(dir, "out.json"))
	if code != 1 || !strings.Contains(stderr, "load config") {
		t.Fatalf("expected build to fail on broken config, got %d: %s", code, stderr)
	}
}

func TestOpsListsLayers(t *testing.T) {
	code, stdout, _ := runCLI(t, "ops")
	if code != 0 {
		t.Fatalf("ops exited %d", code)
	}
	for _, name := range []string{"xor_mask", "substitute", "rotate_left", "base64_encode"} {
		if !strings.Contains(stdout, name) {
			t.Fatalf("expected %s in:\n%s", name, stdout)
		}
	}
}

func TestDefaultOutput(t *testing.T) {
	cases := []struct {
		dir, input, want string
	}{
		{".", "payload.py", "payload.glyph.json"},
		{"out", "/tmp/stage.ps1", filepath.Join("out", "stage.glyph.json")},
		{"", "https://example.com/a/loader.sh?x=1", "loader.glyph.json"},
		{".", "https://example.com/", "example.glyph.json"},
	}
	for _, tc := range cases {
		if got := defaultOutput(tc.dir, tc.input); got != tc.want {
			t.Errorf("defaultOutput(%q, %q) = %q, want %q", tc.dir, tc.input, got, tc.want)
		}
	}
}

func TestOpsFilters(t *testing.T) {
	code, stdout, _ := runCLI(t, "ops", "--type", "decode")
	if code != 0 {
		t.Fatalf("ops --type exited %d", code)
	}
	if !strings.Contains(stdout, "rotate_right") {
		t.Fatalf("expected rotate_right in:\n%s", stdout)
	}
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, "rotate_left") || strings.HasPrefix(line, "xor_mask") {
			t.Fatalf("unexpected non-decode operation %q", line)
		}
	}

	code, stdout, _ = runCLI(t, "ops", "substitute")
	if code != 0 {
		t.Fatalf("ops NAME exited %d", code)
	}
	if !strings.Contains(stdout, "unsubstitute") {
		t.Fatalf("expected reverse name in:\n%s", stdout)
	}

	if code, _, _ := runCLI(t, "ops", "hex_encode"); code != 1 {
		t.Fatalf("expected exit 1 for unknown operation, got %d", code)
	}
	if code, _, _ := runCLI(t, "ops", "--type", "bogus"); code != 2 {
		t.Fatalf("expected exit 2 for unknown type, got %d", code)
	}
}
