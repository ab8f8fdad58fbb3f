package utils

import (
	"testing"

	"pulsemail/models"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteVariables(t *testing.T) {
	contact := &models.Contact{
		Email:     "jane@acme.io",
		FirstName: "Jane",
		LastName:  "Doe",
		Company:   "Acme",
		JobTitle:  "CTO",
	}

	out := SubstituteVariables("Hi {{firstName}} {{lastName}} from {{company}}", contact)
	assert.Equal(t, "Hi Jane Doe from Acme", out)
}

func TestSubstituteVariablesUnknownPlaceholderUntouched(t *testing.T) {
	contact := &models.Contact{FirstName: "Jane"}

	out := SubstituteVariables("Hi {{firstName}}, your code is {{code}}", contact)
	assert.Equal(t, "Hi Jane, your code is {{code}}", out)
}

func TestSubstituteVariablesEmptyFields(t *testing.T) {
	out := SubstituteVariables("Hi {{firstName}}!", &models.Contact{})
	assert.Equal(t, "Hi !", out)
}
