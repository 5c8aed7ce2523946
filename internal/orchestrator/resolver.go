package orchestrator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/pkg/models"
)

// Disposition is the decision taken for a section that has earlier progress
type Disposition int

const (
	Resume Disposition = iota
	Restart
	Abort
)

func (d Disposition) String() string {
	switch d {
	case Resume:
		return "resume"
	case Restart:
		return "restart"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Resolver decides what to do with sections that already have progress
type Resolver interface {
	// OnPartial is asked for a section with an in-progress checkpoint
	OnPartial(section models.Section, rp models.ResumePoint) Disposition
	// OnExisting is asked for a section whose artifact exists without a
	// checkpoint. Restart overwrites it, anything else keeps it.
	OnExisting(section models.Section, artifactPath string) Disposition
}

// ParsePolicy maps a config policy to a disposition. "ask" and unknown
// values map to Resume; unknown values also return an error.
func ParsePolicy(policy string) (Disposition, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", config.OnPartialResume, config.OnPartialAsk:
		return Resume, nil
	case config.OnPartialRestart:
		return Restart, nil
	case config.OnPartialAbort:
		return Abort, nil
	default:
		return Resume, fmt.Errorf("unknown partial policy %q", policy)
	}
}

// PolicyResolver answers every question with a fixed disposition
type PolicyResolver struct {
	partial Disposition
}

// NewPolicyResolver creates a non-interactive resolver. Existing artifacts
// are only overwritten under the Restart policy.
func NewPolicyResolver(partial Disposition) *PolicyResolver {
	return &PolicyResolver{partial: partial}
}

func (p *PolicyResolver) OnPartial(models.Section, models.ResumePoint) Disposition {
	return p.partial
}

func (p *PolicyResolver) OnExisting(models.Section, string) Disposition {
	if p.partial == Restart {
		return Restart
	}
	return Abort
}

// PromptResolver asks on a terminal. Questions from concurrently running
// sections are serialized. When input is exhausted the fallback applies.
type PromptResolver struct {
	mu       sync.Mutex
	in       *bufio.Reader
	out      io.Writer
	fallback *PolicyResolver
}

// NewPromptResolver creates an interactive resolver reading answers from in
func NewPromptResolver(in io.Reader, out io.Writer, fallback Disposition) *PromptResolver {
	return &PromptResolver{
		in:       bufio.NewReader(in),
		out:      out,
		fallback: NewPolicyResolver(fallback),
	}
}

func (p *PromptResolver) OnPartial(section models.Section, rp models.ResumePoint) Disposition {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\nSection %s %q is partially complete (%d units done, started %s).\n",
		section.Number, section.Title, len(rp.CompletedSubsections), rp.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprint(p.out, "[R]esume, re[s]tart or [a]bort? [R]: ")

	answer, ok := p.readLine()
	if !ok {
		return p.fallback.OnPartial(section, rp)
	}
	switch answer {
	case "", "r", "resume":
		return Resume
	case "s", "restart":
		return Restart
	case "a", "abort":
		return Abort
	default:
		fmt.Fprintf(p.out, "Unrecognised answer %q, resuming\n", answer)
		return Resume
	}
}

func (p *PromptResolver) OnExisting(section models.Section, artifactPath string) Disposition {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\nSection %s already exists at %s.\n", section.Number, artifactPath)
	fmt.Fprint(p.out, "Overwrite? [y/N]: ")

	answer, ok := p.readLine()
	if !ok {
		return p.fallback.OnExisting(section, artifactPath)
	}
	if answer == "y" || answer == "yes" {
		return Restart
	}
	return Abort
}

func (p *PromptResolver) readLine() (string, bool) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(line)), true
}
