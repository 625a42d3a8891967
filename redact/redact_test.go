package redact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/model"
)

func TestSanitizeText_RoundTrip(t *testing.T) {
	r := NewRedactor()
	input := "My NPI is 1234567890 and my card is 4111 1111 1111 1111."

	sanitized, mappings := r.SanitizeText(input)

	assert.NotContains(t, sanitized, "1234567890")
	assert.NotContains(t, sanitized, "4111 1111 1111 1111")
	assert.Contains(t, sanitized, NPIPrefix)
	assert.Contains(t, sanitized, PCIPrefix)
	require.Len(t, mappings, 2)

	restored := r.RestoreText(sanitized, func(token string) (string, bool) {
		v, ok := mappings[token]
		return v, ok
	})
	assert.Equal(t, input, restored)
}

func TestSanitizeText_TokensAreDeterministic(t *testing.T) {
	r := NewRedactor()

	a, _ := r.SanitizeText("NPI 1234567890")
	b, _ := r.SanitizeText("NPI 1234567890")
	assert.Equal(t, a, b)

	// repeated mentions of the same value share one token
	s, mappings := r.SanitizeText("1234567890 and again 1234567890")
	assert.Len(t, mappings, 1)
	assert.Equal(t, 2, strings.Count(s, NPIPrefix))
}

func TestSanitizeText_CardDigitCount(t *testing.T) {
	r := NewRedactor()

	// dashed variant with 16 digits is tokenized
	s, mappings := r.SanitizeText("card 4111-1111-1111-1111")
	assert.Contains(t, s, PCIPrefix)
	assert.Len(t, mappings, 1)

	// 20 digits match the shape but fail the 13-19 digit count
	s, mappings = r.SanitizeText("ref 4111 1111 1111 1111 1111")
	assert.NotContains(t, s, PCIPrefix)
	assert.Empty(t, mappings)

	// a truncated group never matches the shape at all
	s, mappings = r.SanitizeText("ref 1111 2222 3333 444")
	assert.NotContains(t, s, PCIPrefix)
	assert.Empty(t, mappings)
}

func TestSanitizeText_PlainTextUntouched(t *testing.T) {
	r := NewRedactor()
	s, mappings := r.SanitizeText("nothing sensitive here")
	assert.Equal(t, "nothing sensitive here", s)
	assert.Empty(t, mappings)
}

func TestRestoreText_UnknownTokenKept(t *testing.T) {
	r := NewRedactor()
	text := "result " + Token(NPIPrefix, "1234567890")
	restored := r.RestoreText(text, func(string) (string, bool) { return "", false })
	assert.Equal(t, text, restored)
}

func newRedactInvocation() *core.InvocationContext {
	sess := core.NewSession("app", "u1", "s1")
	return core.NewInvocationContext(
		context.Background(),
		"app", "u1", "s1", "inv-1", "agent",
		core.NewTextContent(core.RoleUser, "hi"),
		sess, nil, nil,
	)
}

func TestPlugin_SanitizeAndRestore(t *testing.T) {
	store := NewInMemoryStore()
	plugin := NewPlugin(store)
	ictx := newRedactInvocation()

	req := &model.Request{Contents: []core.Content{
		core.NewTextContent(core.RoleUser, "My NPI is 1234567890."),
	}}
	out, err := plugin.BeforeModel(ictx, req)
	require.NoError(t, err)
	assert.Nil(t, out, "sanitization rewrites in place without overriding")

	sanitized := req.Contents[0].Text()
	assert.NotContains(t, sanitized, "1234567890")
	require.True(t, ContainsToken(sanitized))

	// the model echoes the token back
	resp := model.NewTextResponse("Your identifier " + Token(NPIPrefix, "1234567890") + " is on file.")
	_, err = plugin.AfterModel(ictx, resp)
	require.NoError(t, err)
	assert.Equal(t, "Your identifier 1234567890 is on file.", resp.Text())
}

func TestPlugin_MappingsAreSessionScoped(t *testing.T) {
	store := NewInMemoryStore()
	plugin := NewPlugin(store)

	ictx := newRedactInvocation()
	req := &model.Request{Contents: []core.Content{
		core.NewTextContent(core.RoleUser, "NPI 1234567890"),
	}}
	_, err := plugin.BeforeModel(ictx, req)
	require.NoError(t, err)

	// another session cannot restore this session's token
	other := core.NewInvocationContext(
		context.Background(),
		"app", "u2", "s2", "inv-2", "agent",
		core.NewTextContent(core.RoleUser, "hi"),
		core.NewSession("app", "u2", "s2"), nil, nil,
	)
	resp := model.NewTextResponse(Token(NPIPrefix, "1234567890"))
	_, err = plugin.AfterModel(other, resp)
	require.NoError(t, err)
	assert.True(t, ContainsToken(resp.Text()), "token must stay opaque outside its session")
}

// failingMappingStore rejects writes.
type failingMappingStore struct{}

func (failingMappingStore) Put(context.Context, string, string, string) error {
	return errors.New("backend down")
}

func (failingMappingStore) Get(context.Context, string, string) (string, bool, error) {
	return "", false, errors.New("backend down")
}

func TestPlugin_FailsClosedOnWriteError(t *testing.T) {
	plugin := NewPlugin(failingMappingStore{})
	ictx := newRedactInvocation()

	req := &model.Request{Contents: []core.Content{
		core.NewTextContent(core.RoleUser, "NPI 1234567890"),
	}}
	_, err := plugin.BeforeModel(ictx, req)
	require.Error(t, err, "an unpersistable mapping must abort the model call")
}
