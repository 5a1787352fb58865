package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
)

// PayloadValidator checks a category payload before it is stored. Failures
// must wrap common.ErrValidation.
type PayloadValidator interface {
	Validate(category models.Category, payload json.RawMessage) error
}

// JSONObjectValidator accepts any JSON object up to MaxBytes (0 = unlimited).
// Per-category field schemas are left to the caller's forms.
type JSONObjectValidator struct {
	MaxBytes int
}

func (v JSONObjectValidator) Validate(category models.Category, payload json.RawMessage) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: %s payload is empty", common.ErrValidation, category)
	}
	if v.MaxBytes > 0 && len(trimmed) > v.MaxBytes {
		return fmt.Errorf("%w: %s payload exceeds %d bytes", common.ErrValidation, category, v.MaxBytes)
	}

	var obj map[string]json.RawMessage
	if trimmed[0] != '{' || json.Unmarshal(trimmed, &obj) != nil {
		return fmt.Errorf("%w: %s payload must be a JSON object", common.ErrValidation, category)
	}
	return nil
}
