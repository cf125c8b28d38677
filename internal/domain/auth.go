package domain

// AuthStatus is the authorization state derived for one request. It is never
// persisted; the resolver recomputes it from the identity service every time.
type AuthStatus struct {
	MediaCloudAuthorized         bool   `json:"media_cloud_authorized"`
	SousChefAuthorized           bool   `json:"sous_chef_authorized"`
	MediaCloudStaff              bool   `json:"media_cloud_staff"`
	MediaCloudFullTextAuthorized bool   `json:"media_cloud_full_text_authorized"`
	TagSlug                      string `json:"tag_slug"`
}

// Authorized requires both the Media Cloud and Sous Chef grants.
func (s AuthStatus) Authorized() bool {
	return s.MediaCloudAuthorized && s.SousChefAuthorized
}
