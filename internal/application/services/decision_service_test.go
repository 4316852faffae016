package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/domain/events"
	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/ai"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
)

type decisionFixture struct {
	blocks        *memBlockRepo
	personaRepo   *memPersonaRepo
	actions       *memActionRepo
	conversations *memConversationRepo
	dispatcher    *fakeDispatcher
	invoker       *fakeInvoker
	transcriber   *fakeTranscriber
	personas      *PersonaService
	events        *memEventRepo
	svc           *DecisionService
}

func newDecisionFixture(data map[string]any) *decisionFixture {
	logger := logging.NewNopLogger()
	f := &decisionFixture{
		blocks:        newMemBlockRepo(),
		personaRepo:   newMemPersonaRepo(),
		actions:       &memActionRepo{},
		conversations: &memConversationRepo{},
		dispatcher:    &fakeDispatcher{},
		invoker:       &fakeInvoker{result: &ai.InvokeResult{Success: true, Data: data}},
		transcriber:   &fakeTranscriber{text: "قیمت کارت ویزیت چند است؟"},
		events:        &memEventRepo{},
	}
	personas := NewPersonaService(f.personaRepo, persona.DefaultThresholds(), logger)
	f.personas = personas
	provider := NewEventCommerceProvider(f.events, nil, time.Hour)
	provider.now = func() time.Time { return triggerNow }
	triggers := NewTriggerService(personas, f.events, provider, defaultTriggerSettings(), logger)
	triggers.now = func() time.Time { return triggerNow }
	assembler := NewContextAssembler(ContextSources{
		Site:          staticSite{capabilities: []string{"Price calculator"}},
		Personas:      personas,
		Conversations: f.conversations,
	}, ContextSettings{TokenBudget: 500}, logger)
	f.svc = NewDecisionService(DecisionDeps{
		Security:      NewSecurityService(f.blocks, logger),
		Assembler:     assembler,
		Invoker:       f.invoker,
		Personas:      personas,
		Triggers:      triggers,
		Actions:       f.actions,
		Conversations: f.conversations,
		Dispatcher:    f.dispatcher,
		Transcriber:   f.transcriber,
	}, DecisionSettings{PersonaUpdateDelta: 20, StructuredResponses: true, SiteName: "Chapkhane"}, logger)
	return f
}

func validReply() map[string]any {
	return map[string]any{
		"thought":        "visitor compares card prices",
		"response":       "Our business cards start at 500 units.",
		"action":         "highlight_element",
		"target":         "#calculator",
		"data":           map[string]any{"color": "gold", "token": "secret-value"},
		"persona_update": "business",
	}
}

func TestGenerateDecision_FullTurn(t *testing.T) {
	ctx := context.Background()
	f := newDecisionFixture(validReply())

	res := f.svc.GenerateDecision(ctx, decision.UserContext{UserIdentifier: "u1", Message: "price for cards? mail me at me@example.com"})

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Response)
	assert.Equal(t, decision.ActionHighlightElement, res.Response.Action)
	assert.Equal(t, "[FILTERED]", res.Response.Data["token"])

	assert.Equal(t, 20, f.personaRepo.scores["u1"][persona.Business])

	require.Len(t, f.actions.entries, 1)
	assert.Equal(t, "#calculator", f.actions.entries[0].Target)
	require.Len(t, f.dispatcher.sent["u1"], 1)
	assert.Equal(t, decision.ActionHighlightElement, f.dispatcher.sent["u1"][0].Action)

	require.Len(t, f.conversations.messages, 2)
	assert.Equal(t, decision.RoleUser, f.conversations.messages[0].Role)
	assert.NotContains(t, f.conversations.messages[0].Content, "me@example.com")
	assert.Equal(t, decision.RoleAssistant, f.conversations.messages[1].Role)

	require.Equal(t, 1, f.invoker.calls())
	assert.NotNil(t, f.invoker.opts[0].Schema)
	assert.Contains(t, f.invoker.opts[0].SystemInstruction, "Chapkhane")
	assert.Contains(t, f.invoker.prompts[0], "=== USER MESSAGE ===")
	assert.NotContains(t, f.invoker.prompts[0], "me@example.com")
}

func TestGenerateDecision_Validation(t *testing.T) {
	f := newDecisionFixture(validReply())

	res := f.svc.GenerateDecision(context.Background(), decision.UserContext{UserIdentifier: "u1", Message: "  "})
	assert.False(t, res.Success)
	assert.Equal(t, ErrorCodeValidation, res.Error)
	assert.Zero(t, f.invoker.calls())
}

func TestGenerateDecision_BlockedUserShortCircuits(t *testing.T) {
	f := newDecisionFixture(validReply())
	require.NoError(t, f.blocks.Block(context.Background(), "u1", "abuse"))

	res := f.svc.GenerateDecision(context.Background(), decision.UserContext{UserIdentifier: "u1", Message: "hi"})

	assert.False(t, res.Success)
	assert.Equal(t, ErrorCodeBlocked, res.Error)
	assert.Equal(t, MessageAccessRestricted, res.Message)
	assert.Zero(t, f.invoker.calls())
	assert.Empty(t, f.conversations.messages)
}

func TestGenerateDecision_UpstreamFailure(t *testing.T) {
	f := newDecisionFixture(nil)
	f.invoker.result = ai.Fallback(errors.New("status 500: internal details"))

	res := f.svc.GenerateDecision(context.Background(), decision.UserContext{UserIdentifier: "u1", Message: "hi"})

	assert.False(t, res.Success)
	assert.Equal(t, ErrorCodeUpstream, res.Error)
	assert.Equal(t, ai.FallbackMessage, res.Message)
	assert.NotContains(t, res.Message, "internal details")
	assert.Empty(t, f.actions.entries)
}

func TestGenerateDecision_InvalidResponseRejectedWholesale(t *testing.T) {
	reply := validReply()
	reply["persona_update"] = "astronaut"
	f := newDecisionFixture(reply)

	res := f.svc.GenerateDecision(context.Background(), decision.UserContext{UserIdentifier: "u1", Message: "hi"})

	assert.False(t, res.Success)
	assert.Equal(t, ErrorCodeInvalidAI, res.Error)
	assert.Empty(t, f.personaRepo.scores)
	assert.Empty(t, f.actions.entries)
	assert.Empty(t, f.dispatcher.sent)
}

func TestGenerateDecision_NoActionNoDispatch(t *testing.T) {
	reply := validReply()
	reply["action"] = "none"
	delete(reply, "persona_update")
	f := newDecisionFixture(reply)

	res := f.svc.GenerateDecision(context.Background(), decision.UserContext{UserIdentifier: "u1", Message: "hi"})

	require.True(t, res.Success)
	assert.Empty(t, f.actions.entries)
	assert.Empty(t, f.dispatcher.sent)
	assert.Empty(t, f.personaRepo.scores)
}

func TestGenerateDecision_StorageFailuresAreNotFatal(t *testing.T) {
	f := newDecisionFixture(validReply())
	f.actions.err = errStorageDown
	f.conversations.err = errStorageDown
	f.blocks.err = errStorageDown

	res := f.svc.GenerateDecision(context.Background(), decision.UserContext{UserIdentifier: "u1", Message: "hi"})

	assert.True(t, res.Success)
	assert.Len(t, f.dispatcher.sent["u1"], 1)
}

func TestGenerateDecision_NestedCallIsSkipped(t *testing.T) {
	f := newDecisionFixture(validReply())
	var nested decision.Result
	f.invoker.hook = func(ctx context.Context) {
		if f.invoker.calls() == 1 {
			nested = f.svc.GenerateDecision(ctx, decision.UserContext{UserIdentifier: "u1", Message: "again"})
		}
	}

	res := f.svc.GenerateDecision(context.Background(), decision.UserContext{UserIdentifier: "u1", Message: "hi"})

	assert.True(t, res.Success)
	assert.False(t, nested.Success)
	assert.Equal(t, ErrorCodeReentrant, nested.Error)
	assert.Equal(t, 1, f.invoker.calls())
}

func TestGenerateVoiceDecision(t *testing.T) {
	f := newDecisionFixture(validReply())

	res := f.svc.GenerateVoiceDecision(context.Background(), decision.UserContext{UserIdentifier: "u1"}, "https://cdn.example.com/a.ogg", "fa")
	require.True(t, res.Success)
	assert.Contains(t, f.invoker.prompts[0], "کارت ویزیت")

	f.transcriber.err = errors.New("transcription failed")
	res = f.svc.GenerateVoiceDecision(context.Background(), decision.UserContext{UserIdentifier: "u1"}, "https://cdn.example.com/a.ogg", "fa")
	assert.False(t, res.Success)
	assert.Equal(t, MessageVoiceFailed, res.Message)
}

func (f *decisionFixture) addCheckoutActivity(user string) {
	for i := 0; i < 5; i++ {
		f.events.events = append(f.events.events, &events.InteractionEvent{
			UserIdentifier: user,
			EventType:      events.EventClick,
			ElementClass:   "et_pb_gallery",
			Timestamp:      triggerNow.Add(-time.Duration(i+10) * time.Second),
		})
	}
	f.events.events = append(f.events.events, &events.InteractionEvent{
		UserIdentifier: user,
		EventType:      events.EventClick,
		ElementClass:   "et_pb_wc_add_to_cart",
		ElementData:    map[string]any{"product": "Business Card", "quantity": 2, "price": 150},
		Timestamp:      triggerNow.Add(-time.Second),
	})
}

func TestProactive_PromptDescribesTrigger(t *testing.T) {
	ctx := context.Background()
	f := newDecisionFixture(validReply())
	f.personas.AddScore(ctx, "u1", persona.Business, 80)
	f.addCheckoutActivity("u1")

	td, res := f.svc.Proactive(ctx, decision.UserContext{UserIdentifier: "u1"})
	require.True(t, td.Trigger)
	require.NotNil(t, res)
	assert.True(t, res.Success)

	require.Equal(t, 1, f.invoker.calls())
	prompt := f.invoker.prompts[0]
	assert.Contains(t, prompt, "Dominant persona: business (score 80, confidence 100%)")
	assert.Contains(t, prompt, "6 events, 1 high intent")
	assert.Contains(t, prompt, "Last element seen: et_pb_wc_add_to_cart")
	assert.Contains(t, prompt, "Cart: Business Card x2 (total 300)")

	// trigger-driven turns store only the assistant reply
	require.Len(t, f.conversations.messages, 1)
	assert.Equal(t, decision.RoleAssistant, f.conversations.messages[0].Role)
}

func TestProactive_NotTriggered(t *testing.T) {
	f := newDecisionFixture(validReply())

	td, res := f.svc.Proactive(context.Background(), decision.UserContext{UserIdentifier: "u1"})
	assert.False(t, td.Trigger)
	assert.Equal(t, decision.ReasonInsufficientScore, td.Reason)
	assert.Nil(t, res)
	assert.Zero(t, f.invoker.calls())
}

func TestProactive_BlockedUserGetsNothing(t *testing.T) {
	ctx := context.Background()
	f := newDecisionFixture(validReply())
	f.personas.AddScore(ctx, "u1", persona.Business, 80)
	f.addCheckoutActivity("u1")
	require.NoError(t, f.blocks.Block(ctx, "u1", "abuse"))

	td, res := f.svc.Proactive(ctx, decision.UserContext{UserIdentifier: "u1"})
	assert.False(t, td.Trigger)
	assert.Nil(t, td.Context)
	require.NotNil(t, res)
	assert.Equal(t, ErrorCodeBlocked, res.Error)
	assert.Equal(t, MessageAccessRestricted, res.Message)
	assert.Zero(t, f.invoker.calls())
}

func TestGenerateDecision_TargetSanitized(t *testing.T) {
	reply := validReply()
	reply["target"] = "#contact-admin@example.com"
	f := newDecisionFixture(reply)

	res := f.svc.GenerateDecision(context.Background(), decision.UserContext{UserIdentifier: "u1", Message: "hi"})
	require.True(t, res.Success)
	assert.NotContains(t, res.Response.Target, "admin@example.com")
	require.Len(t, f.actions.entries, 1)
	assert.NotContains(t, f.actions.entries[0].Target, "admin@example.com")
	require.Len(t, f.dispatcher.sent["u1"], 1)
	assert.NotContains(t, f.dispatcher.sent["u1"][0].Target, "admin@example.com")
}
