package security

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// Query keys the visual editor appends to preview URLs.
const (
	PreviewSpaceIDParam   = "_storyblok_tk[space_id]"
	PreviewTimestampParam = "_storyblok_tk[timestamp]"
	PreviewTokenParam     = "_storyblok_tk[token]"
)

// DefaultPreviewTTL bounds how old an editor timestamp may be.
const DefaultPreviewTTL = time.Hour

var (
	ErrPreviewParamsMissing = errors.New("preview parameters missing")
	ErrPreviewTokenInvalid  = errors.New("preview token invalid")
	ErrPreviewTokenExpired  = errors.New("preview token expired")
)

// PreviewRequest is the editor handshake carried on a preview URL.
type PreviewRequest struct {
	SpaceID   string
	Timestamp int64
	Token     string
}

// ParsePreviewRequest extracts the editor handshake from query values.
func ParsePreviewRequest(q url.Values) (*PreviewRequest, error) {
	spaceID := q.Get(PreviewSpaceIDParam)
	ts := q.Get(PreviewTimestampParam)
	token := q.Get(PreviewTokenParam)
	if spaceID == "" || ts == "" || token == "" {
		return nil, ErrPreviewParamsMissing
	}
	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, ErrPreviewTokenInvalid
	}
	return &PreviewRequest{SpaceID: spaceID, Timestamp: timestamp, Token: token}, nil
}

// PreviewSignature computes sha1("<space>:<previewToken>:<timestamp>") as hex.
func PreviewSignature(spaceID, previewToken string, timestamp int64) string {
	sum := sha1.Sum([]byte(spaceID + ":" + previewToken + ":" + strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(sum[:])
}

// Validate checks the handshake signature and its age at now.
func (r *PreviewRequest) Validate(previewToken string, ttl time.Duration, now time.Time) error {
	if previewToken == "" {
		return ErrPreviewTokenInvalid
	}
	expected := PreviewSignature(r.SpaceID, previewToken, r.Timestamp)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(r.Token)) != 1 {
		return ErrPreviewTokenInvalid
	}
	if ttl > 0 && now.Sub(time.Unix(r.Timestamp, 0)) > ttl {
		return ErrPreviewTokenExpired
	}
	return nil
}
