package progress

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestQuietKeepsErrors(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := NewWriter(false, true, &buf)
	defer p.Close()

	p.Printf("step %d", 1)
	p.PersistentPrintf("done")
	p.Debugf("hidden")
	p.Errorf("broken %s", "bundle")

	out := buf.String()
	if strings.Contains(out, "step") || strings.Contains(out, "done") || strings.Contains(out, "hidden") {
		t.Fatalf("quiet mode printed progress: %q", out)
	}
	if !strings.Contains(out, "broken bundle") {
		t.Fatalf("error missing from output: %q", out)
	}
}

func TestVerbosePrintsEverything(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := NewWriter(true, false, &buf)
	defer p.Close()

	p.Printf("step %d", 1)
	p.PersistentPrintf("done")
	p.Debugf("value=%d", 2)
	logger := log.New(p, "", 0)
	logger.Print("from log")

	for _, want := range []string{"step 1\n", "done\n", "🚧 Debug: value=2\n", "from log\n"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("missing %q in %q", want, buf.String())
		}
	}
}

func TestCloseTwice(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := NewWriter(false, true, &buf)
	p.Close()
	p.Close()
	p.PersistentPrintf("after close")
	if buf.Len() != 0 {
		t.Fatalf("quiet printer wrote %q", buf.String())
	}
}
