package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// SpendField is the job variable valuation workers read the spend from.
const SpendField = "spendAmount"

// DecodeJobInput unmarshals job variables into dst. A spend amount that is
// not a JSON number is reported as INVALID_SPEND; any other decode failure
// as INPUT_VALIDATION_FAILED.
func DecodeJobInput(variables string, dst interface{}) *StandardError {
	err := json.Unmarshal([]byte(variables), dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) && typeErr.Field == SpendField {
		return NewInvalidSpendError(fmt.Sprintf("%s: expected a number, got %s", SpendField, typeErr.Value))
	}
	return NewInputValidationFailedError(fmt.Sprintf("parse input: %v", err))
}

// MissingSpendError reports an absent or null spend amount.
func MissingSpendError() *StandardError {
	return NewInvalidSpendError(SpendField + ": required")
}
