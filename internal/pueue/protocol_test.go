package pueue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMarshal_UnitVariantIsBareString(t *testing.T) {
	raw, err := json.Marshal(StatusRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `"Status"`, string(raw))
}

func TestRequestMarshal_TaggedVariant(t *testing.T) {
	raw, err := json.Marshal(StartRequest(3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Start":{"tasks":{"TaskIds":[3]}}}`, string(raw))
}

func TestRequestMarshal_NestedGroupVariants(t *testing.T) {
	parallel := 2
	raw, err := json.Marshal(GroupAddRequest("build", &parallel))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Group":{"Add":{"name":"build","parallel_tasks":2}}}`, string(raw))

	raw, err = json.Marshal(GroupListRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"Group":"List"}`, string(raw))
}

func TestResponseUnmarshal_BareString(t *testing.T) {
	var response Response
	require.NoError(t, json.Unmarshal([]byte(`"Close"`), &response))
	assert.Equal(t, "Close", response.Name)
	assert.Nil(t, response.Payload)
}

func TestResponseUnmarshal_Tagged(t *testing.T) {
	var response Response
	require.NoError(t, json.Unmarshal([]byte(`{"Success":"task started"}`), &response))
	assert.Equal(t, "Success", response.Name)
	assert.Equal(t, "task started", response.Text())
}

func TestResponseText_FallsBackToRawPayload(t *testing.T) {
	var response Response
	require.NoError(t, json.Unmarshal([]byte(`{"Failure":{"code":1}}`), &response))
	assert.Equal(t, `{"code":1}`, response.Text())
}
