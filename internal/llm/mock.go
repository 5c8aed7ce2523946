package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync/atomic"
)

var mockSentences = []string{
	"This idea rests on a small number of definitions that are worth stating carefully.",
	"A worked example makes the consequences of the definition concrete.",
	"The same reasoning extends to the general case with only minor changes.",
	"Students often confuse the two quantities, so we compare them side by side.",
	"Historically the result was discovered long before it was proved rigorously.",
	"In practice the approximation is accurate whenever the underlying assumptions hold.",
	"We close the argument by checking the limiting cases.",
}

// Mock is an offline generator producing deterministic filler text.
// It is used for dry runs and for exercising the pipeline without a backend.
type Mock struct {
	calls atomic.Int64
}

// NewMock creates a mock generator
func NewMock() *Mock {
	return &Mock{}
}

// Calls returns the number of Generate calls made so far
func (m *Mock) Calls() int64 {
	return m.calls.Load()
}

// Generate implements Generator. Output length scales with maxOutputUnits
// and is capped so dry runs stay small.
func (m *Mock) Generate(ctx context.Context, prompt string, maxOutputUnits int) (string, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", Transient(err)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	seed := h.Sum32()

	sentences := min(max(maxOutputUnits/200, 2), 12)
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		if i > 0 && i%4 == 0 {
			b.WriteString("\n\n")
		} else if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(mockSentences[(seed+uint32(i))%uint32(len(mockSentences))])
	}
	fmt.Fprintf(&b, "\n\n(mock output %08x)", seed)
	return b.String(), nil
}
