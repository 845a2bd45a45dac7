package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qrzlogger/config"
	"qrzlogger/qrz"
	"qrzlogger/session"
)

const loginAccepted = `<?xml version="1.0" encoding="utf-8" ?>
<QRZDatabase version="1.34" xmlns="http://xmldata.qrz.com">
<Session><Key>f7a9c2</Key><Count>12</Count><SubExp>Thu Dec 31 23:59:59 2030</SubExp></Session>
</QRZDatabase>`

const loginRejected = `<?xml version="1.0" encoding="utf-8" ?>
<QRZDatabase version="1.34" xmlns="http://xmldata.qrz.com">
<Session><Error>Username/password incorrect </Error></Session>
</QRZDatabase>`

type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) ReadLine(prompt string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func scripted(lines ...string) inputFactory {
	return func(string) (session.Input, io.Closer, error) {
		return &scriptedInput{lines: lines}, io.NopCloser(nil), nil
	}
}

// terminalInput also exposes the prompt-safe writer a readline terminal has.
type terminalInput struct {
	scriptedInput
	out *bytes.Buffer
}

func (t *terminalInput) Stdout() io.Writer {
	return t.out
}

func noInput(t *testing.T) inputFactory {
	return func(string) (session.Input, io.Closer, error) {
		t.Fatalf("terminal input must not be opened")
		return nil, nil, nil
	}
}

// qrzServer answers the XML login and logbook STATUS; reference data
// downloads get a 404.
func qrzServer(t *testing.T, password string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/xml":
			if r.PostForm.Get("password") != password {
				_, _ = io.WriteString(w, loginRejected)
				return
			}
			_, _ = io.WriteString(w, loginAccepted)
		case "/api":
			if r.PostForm.Get("ACTION") != "STATUS" {
				http.Error(w, "unexpected action", http.StatusBadRequest)
				return
			}
			_, _ = io.WriteString(w, "RESULT=OK&BOOK_NAME=Main%20log&COUNT=1234&CALLSIGN=N0CALL")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig points QRZLOGGER_CONFIG at a config using srv for every URL.
func writeConfig(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`qrz:
  station_call: n0call
  station_grid: JN58
  api_key: 9F2D-11AA-77B0-C3E4
  qrz_user: n0call
  qrz_pass: secret
  xml_url: %[1]s/xml
  api_url: %[1]s/api
  timeout_seconds: 5
files:
  data_dir: %[2]s
  cty_url: %[1]s/bigcty.zip
  activity_url: %[1]s/lotw-user-activity.csv
  timeout_seconds: 5
colors:
  use_colors: false
`, srv.URL, filepath.Join(dir, "data"))
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvConfigPath, path)
	return dir
}

func restoreLogger(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunWritesTemplateOnFirstStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrzlogger", "config.yaml")
	t.Setenv(config.EnvConfigPath, path)

	var out bytes.Buffer
	if err := run(testContext(t), runOptions{stdout: &out, input: noInput(t)}); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if !strings.Contains(out.String(), "configuration template was written to "+path) {
		t.Fatalf("missing template notice: %q", out.String())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	err := run(testContext(t), runOptions{stdout: &out, input: noInput(t)})
	if !errors.Is(err, config.ErrConfig) {
		t.Fatalf("expected ErrConfig for untouched template, got %v", err)
	}
	if !strings.Contains(err.Error(), "still has the template value") {
		t.Fatalf("expected placeholder hint, got %v", err)
	}
	if exitCode(err) != exitConfig {
		t.Fatalf("unexpected exit code %d", exitCode(err))
	}
}

func TestRunStopsOnRejectedLogin(t *testing.T) {
	restoreLogger(t)
	srv := qrzServer(t, "other")
	writeConfig(t, srv)

	var out bytes.Buffer
	err := run(testContext(t), runOptions{stdout: &out, input: noInput(t)})
	if !errors.Is(err, qrz.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if exitCode(err) != exitAuth {
		t.Fatalf("unexpected exit code %d", exitCode(err))
	}
	if !strings.Contains(out.String(), "QRZ.com login rejected") {
		t.Fatalf("missing login error: %q", out.String())
	}
}

func TestRunSessionUntilQuit(t *testing.T) {
	restoreLogger(t)
	srv := qrzServer(t, "secret")
	dir := writeConfig(t, srv)

	var out bytes.Buffer
	if err := run(testContext(t), runOptions{stdout: &out, input: scripted("quit")}); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"qrzlogger " + Version,
		"N0CALL",
		"prefix table: unavailable",
		"QRZ.com Main log ready, 1234 QSOs",
		"73!",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "journal.db")); err != nil {
		t.Fatalf("journal not created: %v", err)
	}
	logs, err := os.ReadDir(filepath.Join(dir, "data", "logs"))
	if err != nil || len(logs) == 0 {
		t.Fatalf("expected a daily log file, got %v (err=%v)", logs, err)
	}
}

func TestRunPrintsThroughTerminalWriter(t *testing.T) {
	restoreLogger(t)
	srv := qrzServer(t, "secret")
	writeConfig(t, srv)

	term := &terminalInput{scriptedInput: scriptedInput{lines: []string{"help", "quit"}}, out: &bytes.Buffer{}}
	factory := func(string) (session.Input, io.Closer, error) {
		return term, io.NopCloser(nil), nil
	}
	var out bytes.Buffer
	if err := run(testContext(t), runOptions{stdout: &out, input: factory}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "QRZ.com Main log ready") {
		t.Fatalf("startup output should precede the terminal:\n%s", out.String())
	}
	if strings.Contains(out.String(), "73!") {
		t.Fatalf("session output leaked past the terminal writer:\n%s", out.String())
	}
	for _, want := range []string{"quit", "73!"} {
		if !strings.Contains(term.out.String(), want) {
			t.Fatalf("terminal output missing %q:\n%s", want, term.out.String())
		}
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: qrz.api_key is missing", config.ErrConfig), exitConfig},
		{fmt.Errorf("%w: Username/password incorrect", qrz.ErrAuth), exitAuth},
		{errors.New("open terminal input: no tty"), exitFailure},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"DL6MHC"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected positional arguments to be rejected")
	}
	if cmd.Flags().Lookup("contest") == nil {
		t.Fatalf("missing --contest flag")
	}
}
