package auth

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/mediacloud/sous-chef-kitchen/internal/platform/mediacloud"
)

type fakeIdentity struct {
	profile mediacloud.Profile
	err     error
	calls   int
}

func (f *fakeIdentity) UserProfile(ctx context.Context, apiKey string) (mediacloud.Profile, error) {
	f.calls++
	return f.profile, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestValidateAuthorizedUser(t *testing.T) {
	identity := &fakeIdentity{profile: mediacloud.Profile{Email: "paige@mediacloud.org"}}
	resolver := NewResolver(identity, testLogger())

	status := resolver.Validate(context.Background(), "paige@mediacloud.org", "key-1")

	if !status.Authorized() {
		t.Fatalf("expected authorized status, got %+v", status)
	}
	if status.MediaCloudStaff || status.MediaCloudFullTextAuthorized {
		t.Fatalf("non-staff profile must not carry staff grants: %+v", status)
	}
	if status.TagSlug != GenerateTagSlug("paige@mediacloud.org", "key-1") {
		t.Fatalf("unexpected tag slug %q", status.TagSlug)
	}
}

func TestValidateStaffGetsFullTextGrant(t *testing.T) {
	identity := &fakeIdentity{profile: mediacloud.Profile{Email: "ops@mediacloud.org", IsStaff: true}}
	resolver := NewResolver(identity, testLogger())

	status := resolver.Validate(context.Background(), "ops@mediacloud.org", "key-2")

	if !status.MediaCloudStaff || !status.MediaCloudFullTextAuthorized {
		t.Fatalf("staff profile must carry staff grants: %+v", status)
	}
}

func TestValidateEmptyCredentialsSkipsLookup(t *testing.T) {
	identity := &fakeIdentity{}
	resolver := NewResolver(identity, testLogger())

	for _, pair := range [][2]string{{"", "key"}, {"user@example.com", ""}, {"", ""}} {
		status := resolver.Validate(context.Background(), pair[0], pair[1])
		if status.Authorized() {
			t.Fatalf("empty credentials %q/%q must not authorize", pair[0], pair[1])
		}
	}
	if identity.calls != 0 {
		t.Fatalf("identity service called %d times for empty credentials", identity.calls)
	}
}

func TestValidateUnknownUserUnauthorized(t *testing.T) {
	identity := &fakeIdentity{err: mediacloud.ErrUserNotFound}
	resolver := NewResolver(identity, testLogger())

	status := resolver.Validate(context.Background(), "ghost@example.com", "key")
	if status.Authorized() || status.TagSlug != "" {
		t.Fatalf("unknown user must get a zero status, got %+v", status)
	}
}

func TestValidateIdentityOutageFailsClosed(t *testing.T) {
	identity := &fakeIdentity{err: errors.New("connection refused")}
	resolver := NewResolver(identity, testLogger())

	status := resolver.Validate(context.Background(), "paige@mediacloud.org", "key")
	if status.Authorized() {
		t.Fatalf("identity outage must not authorize, got %+v", status)
	}
}

func TestGenerateTagSlug(t *testing.T) {
	email, key := "paige@mediacloud.org", "secret-key"
	sum := sha1.Sum([]byte(email + ":" + key))
	want := fmt.Sprintf("user-paige-%s", hex.EncodeToString(sum[:])[:8])

	if got := GenerateTagSlug(email, key); got != want {
		t.Fatalf("GenerateTagSlug() = %q, want %q", got, want)
	}
}

func TestGenerateTagSlugCollapsesSpecials(t *testing.T) {
	slug := GenerateTagSlug("First.Last+tag@example.com", "k")
	if !strings.HasPrefix(slug, "user-first-last-tag-") {
		t.Fatalf("expected collapsed local part, got %q", slug)
	}
	if strings.Contains(slug, "--") {
		t.Fatalf("runs of specials must collapse to one dash: %q", slug)
	}
}

func TestGenerateTagSlugDistinctPerKey(t *testing.T) {
	a := GenerateTagSlug("user@example.com", "key-a")
	b := GenerateTagSlug("user@example.com", "key-b")
	if a == b {
		t.Fatalf("different keys must yield different slugs, both %q", a)
	}
}

func TestGenerateTagSlugDeterministic(t *testing.T) {
	first := GenerateTagSlug("user@example.com", "key")
	second := GenerateTagSlug("user@example.com", "key")
	if first != second {
		t.Fatalf("slug is not deterministic: %q vs %q", first, second)
	}
}
