package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jpolson/selfc/internal/token"
)

func TestIsBinaryCoversTheClimbingTable(t *testing.T) {
	for k := token.Assign; k <= token.Brak; k++ {
		assert.Truef(t, token.IsBinary(k), "%s should be IsBinary", k)
	}
	assert.False(t, token.IsBinary(token.Semi))
	assert.False(t, token.IsBinary(token.Not))
}

func TestQuestionParticipatesInClimbing(t *testing.T) {
	// Regression: Question previously sat in the punctuation block before
	// Assign in the Kind enum, so IsBinary's range check silently
	// excluded it and the ternary operator's climbing-loop case was
	// unreachable.
	assert.True(t, token.IsBinary(token.Question))
	assert.Equal(t, 2, token.Precedence(token.Question))
}

func TestPrecedenceOrdering(t *testing.T) {
	assert.Less(t, token.Precedence(token.Assign), token.Precedence(token.Question))
	assert.Less(t, token.Precedence(token.Lor), token.Precedence(token.Lan))
	assert.Less(t, token.Precedence(token.Add), token.Precedence(token.Mul))
	assert.Equal(t, token.Precedence(token.Inc), token.Unary)
	assert.Equal(t, token.Precedence(token.Brak), token.Unary)
}

func TestPrecedenceOfNonBinaryIsZero(t *testing.T) {
	assert.Equal(t, 0, token.Precedence(token.Semi))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "+", token.Add.String())
	assert.Equal(t, "?", token.Question.String())
	assert.Equal(t, "int", token.Int.String())
}
