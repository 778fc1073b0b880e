package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_ValidateABStart_AcceptsWellFormedRequest(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	violations, err := sv.ValidateABStart([]byte(`{"test_name":"ranking-v2","control_pct":50,"duration_days":14}`))

	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestSchemaValidator_ValidateABStart_RejectsMissingTestName(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	violations, err := sv.ValidateABStart([]byte(`{"duration_days":14}`))

	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}

func TestSchemaValidator_ValidateABStart_RejectsOutOfRangeDuration(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	violations, err := sv.ValidateABStart([]byte(`{"test_name":"ranking-v2","duration_days":0}`))

	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}

func TestSchemaValidator_ValidateABStart_RejectsMalformedJSON(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	_, err = sv.ValidateABStart([]byte(`not json`))

	assert.Error(t, err)
}
