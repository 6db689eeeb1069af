package account

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tendant/social-idm/pkg/auth"
	"github.com/tendant/social-idm/pkg/domain"
)

var spans = tracetest.NewSpanRecorder()

func TestMain(m *testing.M) {
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	os.Exit(m.Run())
}

func endedSpan(t *testing.T, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	ended := spans.Ended()
	for i := len(ended) - 1; i >= 0; i-- {
		if ended[i].Name() == name {
			return ended[i]
		}
	}
	t.Fatalf("no ended span named %q", name)
	return nil
}

func attr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestLoginSpans(t *testing.T) {
	store := newMemStore()
	v := &stubVerifier{
		provider: domain.ProviderGoogle,
		claim:    &domain.VerifiedClaim{SocialID: "span-1", Email: "span@x.com", Nickname: "spanner"},
	}
	svc := NewAuthService(store, auth.NewVerifierRegistry(v), &countingIssuer{}, nil)

	_, err := svc.LoginOrRegister(context.Background(), LoginRequest{Provider: "google", IDToken: "t"})
	require.NoError(t, err)

	span := endedSpan(t, "account.LoginOrRegister")
	result, ok := attr(span, "auth.result")
	require.True(t, ok)
	assert.Equal(t, resultRegistered, result.AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)

	v.err = domain.ErrTokenInvalid
	_, err = svc.LoginOrRegister(context.Background(), LoginRequest{Provider: "google", IDToken: "t"})
	require.Error(t, err)

	span = endedSpan(t, "account.LoginOrRegister")
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "token_invalid", span.Status().Description)
}
