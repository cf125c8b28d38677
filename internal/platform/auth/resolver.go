// Package auth derives per-request authorization status from the Media Cloud
// identity service.
package auth

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/mediacloud"
)

// Resolver turns (email, api key) pairs into an AuthStatus. Any failure
// against the identity service is treated the same as "not found": the
// request comes back unauthorized, with no retry. That deliberately conflates
// bad credentials with a service outage; /system/status is the channel that
// tells the two apart.
type Resolver struct {
	identity mediacloud.API
	logger   *slog.Logger
}

func NewResolver(identity mediacloud.API, logger *slog.Logger) *Resolver {
	if identity == nil || logger == nil {
		return nil
	}
	return &Resolver{identity: identity, logger: logger}
}

// Validate derives the AuthStatus for a credential pair. Empty inputs short
// circuit to an all-false status without touching the identity service.
func (r *Resolver) Validate(ctx context.Context, email, apiKey string) domain.AuthStatus {
	var status domain.AuthStatus
	if email == "" || apiKey == "" {
		r.logger.Warn("missing auth credentials", "email", email, "key_present", apiKey != "")
		return status
	}

	profile, err := r.identity.UserProfile(ctx, apiKey)
	if err != nil {
		if errors.Is(err, mediacloud.ErrUserNotFound) {
			r.logger.Warn("user not found", "email", email)
		} else {
			r.logger.Error("auth validation failed, treating as unauthorized", "email", email, "error", err)
		}
		return status
	}

	status.MediaCloudAuthorized = true
	status.MediaCloudStaff = profile.IsStaff
	status.MediaCloudFullTextAuthorized = profile.IsStaff
	// No independent Sous Chef grant exists yet in the identity profile.
	status.SousChefAuthorized = true
	status.TagSlug = GenerateTagSlug(email, apiKey)
	return status
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateTagSlug derives the deterministic per-user ownership tag. The slug
// is a pure function of (email, api key): the lowercased email local part
// with runs of non-alphanumerics collapsed to one "-", plus the first 8 hex
// characters of SHA-1 over "email:key".
func GenerateTagSlug(email, apiKey string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	base := nonAlphanumeric.ReplaceAllString(strings.ToLower(local), "-")

	sum := sha1.Sum([]byte(email + ":" + apiKey))
	digest := hex.EncodeToString(sum[:])[:8]

	return fmt.Sprintf("user-%s-%s", base, digest)
}
