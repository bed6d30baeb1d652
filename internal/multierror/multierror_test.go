package multierror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiError_Error(t *testing.T) {
	m := New[string]()
	m.Add("2", errors.New("error2"))
	m.Add("1", errors.New("error1"))
	m.Add("3", nil)

	assert.Equal(t, "1:error1; 2:error2", m.Error())
	assert.Equal(t, 2, m.Len())
	assert.ElementsMatch(t, []string{"1", "2"}, m.Keys())
}

func TestMultiError_Combined(t *testing.T) {
	m := New[string]()
	assert.Nil(t, m.Combined())

	m.Add("1", assert.AnError)
	assert.NotNil(t, m.Combined())
	assert.ErrorIs(t, m.Combined(), assert.AnError)

	err, ok := m.Get("1")
	assert.True(t, ok)
	assert.Equal(t, assert.AnError, err)
}
