package naming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a component identifier is malformed.
var ErrInvalidID = errors.New("naming: invalid id")

// An ID is the stable path of a component inside a machine. It is a series of
// tokens separated by dots. Each token may carry one or more indices, for
// example "cart.bank[3]" or "apu.pulse[0]".
type ID string

// String returns the id as a plain string.
func (id ID) String() string {
	return string(id)
}

// Tokens splits the id into its tokens. The id must be valid.
func (id ID) Tokens() []Token {
	parts := strings.Split(string(id), ".")
	tokens := make([]Token, 0, len(parts))

	for _, p := range parts {
		t, err := parseToken(p)
		if err != nil {
			panic(err)
		}

		tokens = append(tokens, t)
	}

	return tokens
}

// Parent returns the id without its last token, or the empty id if the id
// only has one token.
func (id ID) Parent() ID {
	i := strings.LastIndex(string(id), ".")
	if i < 0 {
		return ""
	}

	return id[:i]
}

// Child appends a token to the id.
func (id ID) Child(token string) ID {
	if id == "" {
		return ID(token)
	}

	return ID(string(id) + "." + token)
}

// A Token is one dot-separated element of an ID.
type Token struct {
	ElemName string
	Index    []int
}

// ValidateID checks that the id is well-formed.
func ValidateID(id ID) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}

	for _, p := range strings.Split(string(id), ".") {
		if _, err := parseToken(p); err != nil {
			return fmt.Errorf("%w %q: %s", ErrInvalidID, id, err.Error())
		}
	}

	return nil
}

// MustBeValid panics if the id is not valid.
func MustBeValid(id ID) {
	if err := ValidateID(id); err != nil {
		panic(err)
	}
}

func parseToken(token string) (Token, error) {
	if token == "" {
		return Token{}, errors.New("empty token")
	}

	ts := strings.Split(token, "[")
	elemName := ts[0]

	if !isIdentifier(elemName) {
		return Token{}, fmt.Errorf("token %q is not an identifier", elemName)
	}

	indices := make([]int, 0, len(ts)-1)
	for _, t := range ts[1:] {
		if !strings.HasSuffix(t, "]") {
			return Token{}, fmt.Errorf("token %q has unmatched bracket", token)
		}

		index, err := strconv.Atoi(t[:len(t)-1])
		if err != nil || index < 0 {
			return Token{}, fmt.Errorf("token %q index must be a natural number", token)
		}

		indices = append(indices, index)
	}

	return Token{ElemName: elemName, Index: indices}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		switch {
		case c == '_':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
