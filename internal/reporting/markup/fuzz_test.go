package markup

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/render"
)

// FuzzAssemble checks that arbitrary narrative text always yields at least
// one node and leaves the assembler idle.
func FuzzAssemble(f *testing.F) {
	f.Add([]byte("I. Summary\n**bold** text\n```go\nx := 1\n```"))
	f.Add([]byte("- **Label:** value\n---\nRisk: CRITICAL"))
	f.Add([]byte("```"))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		text, err := fuzzConsumer.GetString()
		if err != nil {
			return
		}
		cursor, err := fuzzConsumer.GetInt()
		if err != nil || cursor < 0 {
			cursor = 0
		}

		rec := render.NewRecorder()
		rec.SetCursorY(float64(cursor % 300))
		a := NewAssembler(rec, DefaultOptions(), zap.NewNop())

		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Assemble panicked on %q: %v", text, r)
			}
		}()

		nodes := a.Assemble(text)
		if len(nodes) == 0 {
			t.Fatalf("no nodes for %q", text)
		}
		if a.State() != StateIdle {
			t.Fatalf("state %s after assembling %q", a.State(), text)
		}
		if len(rec.Nodes) != len(nodes) {
			t.Fatalf("renderer saw %d nodes, assembler emitted %d", len(rec.Nodes), len(nodes))
		}
		for _, n := range nodes {
			if n.Kind == schemas.NodeCodeBlock {
				continue
			}
			if strings.Contains(n.Text, "\n") {
				t.Fatalf("%s node carries a newline: %q", n.Kind, n.Text)
			}
		}
	})
}
