package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a deterministic stand-in that never calls the
// network. Configure provider id "mock" for offline runs and local
// debugging.
type MockClient struct{}

func (MockClient) Name() string { return "mock" }

func (MockClient) Generate(_ context.Context, prompt string) (Result, error) {
	start := time.Now()
	var b strings.Builder
	// Speaker-format prompts mention the marker tags; phrase prompts
	// do not. Echo back something shaped like what was asked for.
	if strings.Contains(prompt, "[example]") {
		for i := 1; i <= 3; i++ {
			fmt.Fprintf(&b, "[example]\n[<Helm>] Mock transmission %d, systems nominal.\n[<EDCoPilot>] Acknowledged, mock entry %d logged.\n[/example]\n\n", i, i)
		}
	} else {
		for i := 1; i <= 3; i++ {
			fmt.Fprintf(&b, "Mock phrase %d for <cmdrname>.\n", i)
		}
	}
	return Result{
		Provider: "mock",
		Text:     b.String(),
		Latency:  time.Since(start),
	}, nil
}
