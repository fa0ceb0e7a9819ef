package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, alg string) *Codec {
	t.Helper()

	priv, err := GenerateKey(alg, 2048)
	require.NoError(t, err)

	codec, err := NewCodec(priv, "lockbox-test", time.Second)
	require.NoError(t, err)
	return codec
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"RS256", "EdDSA"} {
		t.Run(alg, func(t *testing.T) {
			t.Parallel()
			codec := newTestCodec(t, alg)

			token, expiresAt, err := codec.Issue(KindRefresh, "user-1", "jti-1", time.Hour)
			require.NoError(t, err)
			require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

			claims, err := codec.Verify(token)
			require.NoError(t, err)
			require.Equal(t, KindRefresh, claims.Kind)
			require.Equal(t, "user-1", claims.Subject)
			require.Equal(t, "jti-1", claims.ID)
			require.Equal(t, "lockbox-test", claims.Issuer)
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t, "EdDSA")

	token, _, err := codec.Issue(KindAccess, "user-1", "", -time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyTampered(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t, "EdDSA")

	token, _, err := codec.Issue(KindAccess, "user-1", "", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = codec.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	t.Parallel()

	priv, err := GenerateKey("EdDSA", 0)
	require.NoError(t, err)

	issuing, err := NewCodec(priv, "other-issuer", time.Second)
	require.NoError(t, err)
	verifying, err := NewCodec(priv, "lockbox-test", time.Second)
	require.NoError(t, err)

	token, _, err := issuing.Issue(KindAccess, "user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = verifying.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	t.Parallel()

	rsaCodec := newTestCodec(t, "RS256")
	edCodec := newTestCodec(t, "EdDSA")

	token, _, err := rsaCodec.Issue(KindAccess, "user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = edCodec.Verify(token)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerifierFromPublicKeyPEM(t *testing.T) {
	t.Parallel()

	priv, err := GenerateKey("RS256", 2048)
	require.NoError(t, err)

	codec, err := NewCodec(priv, "lockbox-test", time.Second)
	require.NoError(t, err)

	pubPEM, err := MarshalPublicKeyPEM(priv)
	require.NoError(t, err)
	pub, err := ParsePublicKeyPEM(pubPEM)
	require.NoError(t, err)

	verifier, err := NewVerifier(pub, "lockbox-test", time.Second)
	require.NoError(t, err)

	token, _, err := codec.Issue(KindAccess, "user-1", "", time.Hour)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)

	// Verify-only codecs cannot issue.
	_, _, err = verifier.Issue(KindAccess, "user-1", "", time.Hour)
	require.ErrorIs(t, err, ErrNoSigner)
}

func TestLeewayToleratesSmallSkew(t *testing.T) {
	t.Parallel()

	priv, err := GenerateKey("EdDSA", 0)
	require.NoError(t, err)
	codec, err := NewCodec(priv, "lockbox-test", 2*time.Minute)
	require.NoError(t, err)

	// Expired one minute ago, inside the two minute leeway.
	token, _, err := codec.Issue(KindAccess, "user-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.NoError(t, err)
}
