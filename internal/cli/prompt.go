package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/PaulYuuu/guisu/pkg/apply"
)

// AutoPrompter always answers the same decision, used for --force
// (override every conflict without asking) and for non-interactive
// contexts where stdin isn't a terminal.
type AutoPrompter struct {
	Decision apply.Decision
}

func (p AutoPrompter) Prompt(apply.PlanEntry) (apply.Decision, error) {
	return p.Decision, nil
}

// InteractivePrompter asks the user on out for each plan entry needing
// confirmation (spec.md §4.5.2/§7's TrueConflict prompt-for-confirmation
// fallback), reading single-letter answers from in: (o)verride,
// (s)kip, (d)iff, (A)ll-override, (S)kip-all, (q)uit.
type InteractivePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewInteractivePrompter(in io.Reader, out io.Writer) *InteractivePrompter {
	return &InteractivePrompter{in: bufio.NewReader(in), out: out}
}

func (p *InteractivePrompter) Prompt(pe apply.PlanEntry) (apply.Decision, error) {
	fmt.Fprintf(p.out, "%s has local modifications. [o]verride, [s]kip, [d]iff, override [A]ll, [S]kip all, [q]uit? ", pe.Target.TargetPath.String())
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return apply.DecisionSkip, nil
	}
	switch strings.TrimSpace(line) {
	case "o":
		return apply.DecisionOverride, nil
	case "d":
		return apply.DecisionDiff, nil
	case "A":
		return apply.DecisionAllOverride, nil
	case "S":
		return apply.DecisionAllSkip, nil
	case "q":
		return apply.DecisionQuit, nil
	default:
		return apply.DecisionSkip, nil
	}
}
