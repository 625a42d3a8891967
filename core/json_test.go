package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_JSONRoundTrip(t *testing.T) {
	in := Content{
		Role: RoleModel,
		Parts: []Part{
			TextPart{Text: "looking that up"},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "lookup", Arguments: `{"q":"x"}`}},
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "c1", Name: "lookup", Response: map[string]any{"ok": true}}},
		},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Content
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, RoleModel, out.Role)
	require.Len(t, out.Parts, 3)
	assert.Equal(t, "looking that up", out.Parts[0].(TextPart).Text)
	assert.Equal(t, "lookup", out.Parts[1].(FunctionCallPart).FunctionCall.Name)
	assert.Equal(t, "c1", out.Parts[2].(FunctionResponsePart).FunctionResponse.ID)
}

func TestContent_UnmarshalUnknownPart(t *testing.T) {
	var out Content
	err := json.Unmarshal([]byte(`{"role":"model","parts":[{"type":"image"}]}`), &out)
	assert.Error(t, err)
}
