package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Challenge is an arithmetic captcha: two operands in 1..9 to be summed.
type Challenge struct {
	A, B int
}

// NewChallenge draws a challenge from intn, which must behave like
// rand.IntN.
func NewChallenge(intn func(n int) int) Challenge {
	return Challenge{A: intn(9) + 1, B: intn(9) + 1}
}

// Question renders the prompt shown next to the answer field.
func (c Challenge) Question() string {
	return fmt.Sprintf("What is %d + %d?", c.A, c.B)
}

// Answer returns the expected sum.
func (c Challenge) Answer() int {
	return c.A + c.B
}

// Check reports whether answer is the expected sum.
func (c Challenge) Check(answer string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	return err == nil && n == c.Answer()
}
