package transport

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalUUIDDistinguishesAbsentFromNull(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name   string
		body   string
		set    bool
		clears bool
		value  *uuid.UUID
	}{
		{"absent", `{}`, false, false, nil},
		{"null", `{"assignedTo":null}`, true, true, nil},
		{"empty string", `{"assignedTo":""}`, true, true, nil},
		{"id", `{"assignedTo":"` + id.String() + `"}`, true, false, &id},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req UpdateLeadRequest
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			assert.Equal(t, tc.set, req.AssignedTo.Set)
			assert.Equal(t, tc.clears, req.AssignedTo.Clears())
			assert.Equal(t, tc.value, req.AssignedTo.Value)
		})
	}
}

func TestOptionalUUIDRejectsGarbage(t *testing.T) {
	var req UpdateLeadRequest
	assert.Error(t, json.Unmarshal([]byte(`{"assignedTo":"agent-7"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"assignedTo":7}`), &req))
}
