package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/careline/internal/domain"
	"github.com/ashureev/careline/internal/groq"
)

type fakeCompleter struct {
	response    string
	err         error
	gotMessages []groq.Message
	gotJSONMode bool
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []groq.Message, jsonMode bool) (string, error) {
	f.gotMessages = messages
	f.gotJSONMode = jsonMode
	return f.response, f.err
}

func TestDecideParsesSearch(t *testing.T) {
	fc := &fakeCompleter{response: `{"search":{"city":"Bangalore","hospital_name":"","is_count_query":true},"clarifying_question":null,"direct_reply":null}`}
	d := NewGroqDecider(fc)

	dec, err := d.Decide(context.Background(), "How many hospitals in Bangalore?")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionSearch, dec.Kind())
	assert.Equal(t, "Bangalore", dec.Search().City)
	assert.True(t, dec.Search().IsCountQuery)
	assert.True(t, fc.gotJSONMode)
}

func TestDecideSearchTakesPriorityOverOtherFields(t *testing.T) {
	fc := &fakeCompleter{response: `{"search":{"city":"Mumbai"},"clarifying_question":"Which city?","direct_reply":"Hi"}`}
	d := NewGroqDecider(fc)

	dec, err := d.Decide(context.Background(), "hospitals in mumbai")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionSearch, dec.Kind())
}

func TestDecideParsesClarifyingQuestion(t *testing.T) {
	fc := &fakeCompleter{response: `{"search":null,"clarifying_question":"Which city do you mean?","direct_reply":null}`}
	d := NewGroqDecider(fc)

	dec, err := d.Decide(context.Background(), "find a hospital")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionClarify, dec.Kind())
	assert.Equal(t, "Which city do you mean?", dec.Text())
}

func TestDecideParsesDirectReply(t *testing.T) {
	fc := &fakeCompleter{response: `{"search":null,"clarifying_question":null,"direct_reply":"Hello! I can help you find hospitals."}`}
	d := NewGroqDecider(fc)

	dec, err := d.Decide(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionReply, dec.Kind())
	assert.Equal(t, "Hello! I can help you find hospitals.", dec.Text())
}

func TestDecideAllFieldsEmptyYieldsEmptyReply(t *testing.T) {
	fc := &fakeCompleter{response: `{"search":null,"clarifying_question":null,"direct_reply":null}`}
	d := NewGroqDecider(fc)

	dec, err := d.Decide(context.Background(), "tell me a joke")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionReply, dec.Kind())
	assert.Empty(t, dec.Text())
}

func TestDecideMalformedJSONIsAnError(t *testing.T) {
	fc := &fakeCompleter{response: `not json at all`}
	d := NewGroqDecider(fc)

	_, err := d.Decide(context.Background(), "hi")
	require.Error(t, err)
}

func TestDecideCompletionErrorPropagates(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("backend down")}
	d := NewGroqDecider(fc)

	_, err := d.Decide(context.Background(), "hi")
	require.Error(t, err)
}

func TestRespondBuildsPromptWithDataContext(t *testing.T) {
	fc := &fakeCompleter{response: "There are two hospitals in Bangalore."}
	r := NewGroqResponder(fc)

	out, err := r.Respond(context.Background(), "How many hospitals in Bangalore?", "Total count found: 2", "")
	require.NoError(t, err)
	assert.Equal(t, "There are two hospitals in Bangalore.", out)
	assert.False(t, fc.gotJSONMode)
	require.Len(t, fc.gotMessages, 2)
	assert.Contains(t, fc.gotMessages[1].Content, "Total count found: 2")
	assert.Contains(t, fc.gotMessages[1].Content, "How many hospitals in Bangalore?")
}
