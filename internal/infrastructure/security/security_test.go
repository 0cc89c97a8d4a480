package security

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateULID(t *testing.T) {
	id := GenerateULID()
	_, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, GenerateULID())
}

func TestGenerateSecureKey(t *testing.T) {
	key, err := GenerateSecureKey(64)
	require.NoError(t, err)
	assert.Len(t, key, 64)
}

func previewQuery(spaceID, token string, ts int64) url.Values {
	q := url.Values{}
	q.Set(PreviewSpaceIDParam, spaceID)
	q.Set(PreviewTimestampParam, strconv.FormatInt(ts, 10))
	q.Set(PreviewTokenParam, token)
	return q
}

func TestPreviewRequest(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts := now.Add(-time.Minute).Unix()
	sig := PreviewSignature("123", "secret", ts)

	tests := []struct {
		name string
		q    url.Values
		want error
		at   time.Time
	}{
		{"valid", previewQuery("123", sig, ts), nil, now},
		{"wrong signature", previewQuery("123", "nope", ts), ErrPreviewTokenInvalid, now},
		{"other space", previewQuery("999", sig, ts), ErrPreviewTokenInvalid, now},
		{"expired", previewQuery("123", sig, ts), ErrPreviewTokenExpired, now.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParsePreviewRequest(tt.q)
			require.NoError(t, err)
			err = req.Validate("secret", DefaultPreviewTTL, tt.at)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestParsePreviewRequest_Missing(t *testing.T) {
	_, err := ParsePreviewRequest(url.Values{})
	assert.ErrorIs(t, err, ErrPreviewParamsMissing)

	q := previewQuery("1", "x", 0)
	q.Set(PreviewTimestampParam, "soon")
	_, err = ParsePreviewRequest(q)
	assert.ErrorIs(t, err, ErrPreviewTokenInvalid)
}

func TestPreviewRequest_EmptyPreviewToken(t *testing.T) {
	req := &PreviewRequest{SpaceID: "1", Timestamp: time.Now().Unix(), Token: PreviewSignature("1", "", time.Now().Unix())}
	assert.ErrorIs(t, req.Validate("", DefaultPreviewTTL, time.Now()), ErrPreviewTokenInvalid)
}

func TestPreviewSession(t *testing.T) {
	token, err := IssuePreviewSession("123", "jwt-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidatePreviewSession(token, "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "123", claims.SpaceID)
	assert.NotEmpty(t, claims.ID)

	_, err = ValidatePreviewSession(token, "other")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestPreviewSession_Expired(t *testing.T) {
	token, err := IssuePreviewSession("123", "jwt-secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidatePreviewSession(token, "jwt-secret")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestPreviewSession_RejectsNone(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, PreviewClaims{SpaceID: "1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidatePreviewSession(signed, "jwt-secret")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestIssuePreviewSession_EmptySecret(t *testing.T) {
	_, err := IssuePreviewSession("1", "", time.Hour)
	assert.Error(t, err)
}
