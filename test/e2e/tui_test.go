package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"
)

// buildVisionText builds the visiontext binary for testing.
func buildVisionText(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "visiontext")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// We are in test/e2e; the module root is two levels up.
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/visiontext")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

func TestE2E_ExtractAndHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and runs the binary")
	}
	binPath := buildVisionText(t)
	baseURL, imagePath := startFixture(t)

	// A clean home keeps the event log and any config out of real data.
	homeDir := t.TempDir()

	var outputBuf bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdout(&outputBuf),
		expect.WithDefaultTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	if err := pty.Setsize(console.Tty(), &pty.Winsize{Cols: 120, Rows: 40}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	cmd := exec.Command(binPath)
	cmd.Dir = homeDir
	cmd.Stdin = console.Tty()
	cmd.Stdout = console.Tty()
	cmd.Stderr = console.Tty()
	cmd.Env = append(os.Environ(),
		"HOME="+homeDir,
		"TERM=xterm-256color",
		"VISIONTEXT_BASE_URL="+baseURL,
	)
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer func() { _ = cmd.Process.Kill() }()

	fail := func(step string, err error) {
		t.Helper()
		if logs, rerr := os.ReadFile(filepath.Join(homeDir, ".visiontext", "visiontext.events.jsonl")); rerr == nil {
			t.Logf("event log:\n%s", logs)
		}
		t.Fatalf("%s: %v\nScreen:\n%s", step, err, outputBuf.String())
	}

	t.Log("Waiting for startup...")
	if _, err := console.ExpectString("No past extractions"); err != nil {
		fail("startup", err)
	}

	t.Log("Opening image...")
	time.Sleep(300 * time.Millisecond) // let the UI settle
	if _, err := console.Send("o"); err != nil {
		t.Fatal(err)
	}
	if _, err := console.ExpectString("Image path:"); err != nil {
		fail("path prompt", err)
	}
	if _, err := console.Send(imagePath + "\r"); err != nil {
		t.Fatal(err)
	}
	if _, err := console.ExpectString("summer.png"); err != nil {
		fail("image selected", err)
	}

	t.Log("Extracting...")
	if _, err := console.Send("e"); err != nil {
		t.Fatal(err)
	}
	if _, err := console.ExpectString("SUMMER SOUNDS"); err != nil {
		fail("event card", err)
	}
	if _, err := console.ExpectString("Night Mood"); err != nil {
		fail("atmosphere badge", err)
	}
	if _, err := console.ExpectString("History (1)"); err != nil {
		fail("history refresh", err)
	}

	t.Log("Quitting...")
	if _, err := console.Send("q"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("process exited with error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Error("process did not exit after 'q'")
	}
}
