package s3

import "github.com/arencloud/strata/internal/models"

// DefaultRegion is the only region a bucket can be created in without an
// explicit location constraint.
const DefaultRegion = "us-east-1"

// Profile holds the per-provider quirks the rest of the package consults.
// BatchDeleteMax of zero means the provider imposes no cap of its own.
type Profile struct {
	Provider         models.Provider
	BatchDeleteMax   int
	DefaultPathStyle bool
}

var profiles = map[models.Provider]Profile{
	models.ProviderAWS:          {Provider: models.ProviderAWS},
	models.ProviderMinio:        {Provider: models.ProviderMinio, DefaultPathStyle: true},
	models.ProviderCloudflareR2: {Provider: models.ProviderCloudflareR2, BatchDeleteMax: 700},
	models.ProviderDigitalOcean: {Provider: models.ProviderDigitalOcean},
	models.ProviderBackblaze:    {Provider: models.ProviderBackblaze},
	models.ProviderWasabi:       {Provider: models.ProviderWasabi},
	models.ProviderCustom:       {Provider: models.ProviderCustom, DefaultPathStyle: true},
}

// ProfileFor returns the profile for p; unknown tags get the custom profile.
func ProfileFor(p models.Provider) Profile {
	if pr, ok := profiles[p]; ok {
		return pr
	}
	return profiles[models.ProviderCustom]
}

// LocationConstraint returns the constraint to send when creating a bucket in
// region, or "" when the request must omit it.
func LocationConstraint(region string) string {
	if region == "" || region == DefaultRegion {
		return ""
	}
	return region
}

// signingRegion is the region used to sign requests; both clients need one
// and an empty value would make minio probe the bucket location first.
func signingRegion(region string) string {
	if region == "" {
		return DefaultRegion
	}
	return region
}
