package auction

import (
	"fmt"
	"strings"
)

// Term identifies a Treasury Bill maturity. The set of valid terms is closed;
// anything outside it is rejected before a request is built.
type Term string

const (
	TermFourWeek      Term = "4-Week"
	TermEightWeek     Term = "8-Week"
	TermThirteenWeek  Term = "13-Week"
	TermTwentySixWeek Term = "26-Week"
	TermFiftyTwoWeek  Term = "52-Week"
)

// Terms returns every valid maturity term in ascending maturity order.
func Terms() []Term {
	return []Term{
		TermFourWeek,
		TermEightWeek,
		TermThirteenWeek,
		TermTwentySixWeek,
		TermFiftyTwoWeek,
	}
}

// ParseTerm validates a maturity label against the closed term set.
func ParseTerm(s string) (Term, error) {
	candidate := Term(strings.TrimSpace(s))
	for _, term := range Terms() {
		if candidate == term {
			return term, nil
		}
	}
	return "", fmt.Errorf("unknown security term %q", s)
}

func (t Term) String() string {
	return string(t)
}
