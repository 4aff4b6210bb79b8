package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string  `json:"name" validate:"required"`
	Scale float64 `form:"scale" validate:"gte=0"`
	Mode  string  `validate:"omitempty,oneof=debug release"`
}

func TestValidateStruct(t *testing.T) {
	assert.Empty(t, ValidateStruct(&sample{Name: "a"}))

	errs := ValidateStruct(&sample{Scale: -1, Mode: "loud"})
	assert.Equal(t, "The field 'name' is required.", errs["name"])
	assert.Equal(t, "The field 'scale' must be greater than or equal to 0.", errs["scale"])
	assert.Equal(t, "The field 'Mode' must be one of debug release.", errs["Mode"])
}

func TestFieldsOfForeignError(t *testing.T) {
	assert.Nil(t, Fields(errors.New("strconv: bad"), &sample{}))
	assert.Empty(t, Fields(nil, &sample{}))
}
