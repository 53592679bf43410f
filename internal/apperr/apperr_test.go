package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnFieldDoesNotMutateSentinel(t *testing.T) {
	tagged := ErrAccountNotFound.OnField("source_id")
	assert.Equal(t, "source_id", tagged.Field)
	assert.Empty(t, ErrAccountNotFound.Field)
	assert.Equal(t, ErrAccountNotFound.Code, tagged.Code)
	assert.Equal(t, ErrAccountNotFound.Message, tagged.Message)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		AccountNotFound:     http.StatusNotFound,
		ValidationError:     http.StatusBadRequest,
		InsufficientFunds:   http.StatusBadRequest,
		InvalidAmount:       http.StatusBadRequest,
		InvalidSortField:    http.StatusBadRequest,
		ConstraintViolation: http.StatusBadRequest,
		ExternalError:       http.StatusInternalServerError,
		InternalError:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, New(code, "x").HTTPStatus(), string(code))
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("change balance: %w", ErrInsufficientFunds.OnField("balance"))
	assert.True(t, IsCode(err, InsufficientFunds))
	assert.False(t, IsCode(err, AccountNotFound))
	assert.False(t, IsCode(fmt.Errorf("plain"), InsufficientFunds))
	assert.False(t, IsCode(nil, InsufficientFunds))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "invalid_amount: Amount must be positive", ErrInvalidAmount.Error())
	assert.Equal(t,
		"invalid_amount (amount): Amount must be positive",
		ErrInvalidAmount.OnField("amount").Error())
}
