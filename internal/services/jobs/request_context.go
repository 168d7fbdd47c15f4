package jobs

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

// maxCallbackBodyBytes bounds webhook bodies read into memory
const maxCallbackBodyBytes = 32 << 20

// internalBypassHeader carries the internal test-harness token that skips
// callback-token validation. Compared against the server-side secret; an
// empty server secret fails closed.
const internalBypassHeader = "X-Internal-Token"

// RequestContext is the parsed, authenticated form of one webhook call.
// Parsed exactly once per request; the job record it carries is a fresh read,
// never a cached copy.
type RequestContext struct {
	JobID          string
	Job            *models.Job
	Payload        *models.CallbackPayload
	CallbackToken  string
	InternalBypass bool
}

// AuthError is returned for webhook auth failures and maps onto 401/403
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ParseRequest reads and authenticates a webhook call. Token priority: body
// field, then X-Callback-Token header, then Bearer Authorization header. Auth
// failures leave the job untouched.
func (s *Service) ParseRequest(ctx context.Context, r *http.Request, jobID string) (*RequestContext, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read callback body: %w", err)
	}

	payload := &models.CallbackPayload{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, payload); err != nil {
			return nil, fmt.Errorf("failed to parse callback body: %w", err)
		}
	}
	if jobID == "" {
		jobID = payload.JobID
	}
	if jobID == "" {
		return nil, fmt.Errorf("callback carries no job id")
	}

	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	rc := &RequestContext{
		JobID:         jobID,
		Job:           job,
		Payload:       payload,
		CallbackToken: callbackToken(payload, r),
	}

	if token := r.Header.Get(internalBypassHeader); token != "" {
		rc.InternalBypass = s.verifyInternalToken(token)
	}

	if err := rc.authenticate(); err != nil {
		return nil, err
	}
	return rc, nil
}

func (rc *RequestContext) authenticate() error {
	if rc.InternalBypass {
		return nil
	}
	if rc.CallbackToken == "" {
		return &AuthError{Status: http.StatusUnauthorized, Message: "missing callback token"}
	}
	if !rc.Job.VerifySecret(rc.CallbackToken) {
		return &AuthError{Status: http.StatusForbidden, Message: "invalid callback token"}
	}
	return nil
}

// verifyInternalToken compares against the server-side secret in constant
// time. An unset secret disables the bypass entirely.
func (s *Service) verifyInternalToken(token string) bool {
	secret := s.config.Worker.InternalSecret
	if secret == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func callbackToken(payload *models.CallbackPayload, r *http.Request) string {
	if payload.CallbackToken != "" {
		return payload.CallbackToken
	}
	if token := r.Header.Get("X-Callback-Token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
