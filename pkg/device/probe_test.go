package device

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

func TestProbeTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	if err := ProbeTCP(context.Background(), host, port, time.Second); err != nil {
		t.Errorf("ProbeTCP() on open port: %v", err)
	}

	ln.Close()
	if err := ProbeTCP(context.Background(), host, port, time.Second); err == nil {
		t.Error("ProbeTCP() on closed port should fail")
	}
}

func TestScriptLines(t *testing.T) {
	script := "environment more false\n\n  \nedit-config private  \r\ncommit\n"
	got := ScriptLines(script)
	want := []string{"environment more false", "edit-config private", "commit"}
	if len(got) != len(want) {
		t.Fatalf("ScriptLines() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

type fakeSession struct{ closed bool }

func (f *fakeSession) Run(string) (string, string, error) { return "", "", nil }
func (f *fakeSession) Upload(string, string) error        { return nil }
func (f *fakeSession) RunScript(string) (string, error)   { return "", nil }

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func TestFirstWorkingPassword(t *testing.T) {
	var tried []string
	sess := &fakeSession{}
	dial := func(_ context.Context, host, user, pass string) (Session, error) {
		tried = append(tried, pass)
		if pass != "admin" {
			return nil, net.ErrClosed
		}
		return sess, nil
	}

	got := FirstWorkingPassword(context.Background(), dial, "10.0.0.1", "admin", []string{"NokiaSros1!", "admin", "never"})
	if got != "admin" {
		t.Errorf("FirstWorkingPassword() = %q, want admin", got)
	}
	if len(tried) != 2 {
		t.Errorf("tried %v, want to stop after the first success", tried)
	}
	if !sess.closed {
		t.Error("probe session should be closed")
	}

	if got := FirstWorkingPassword(context.Background(), dial, "10.0.0.1", "admin", []string{"x"}); got != "" {
		t.Errorf("FirstWorkingPassword() = %q, want empty", got)
	}
}

func TestDialSSH_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, addr, "admin", "admin"); err == nil {
		t.Error("Dial() to a closed port should fail")
	}
}
