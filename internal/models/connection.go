package models

import (
	"encoding/json"
	"strings"
)

// Provider identifies which S3-compatible service a connection targets.
type Provider string

const (
	ProviderAWS          Provider = "aws"
	ProviderMinio        Provider = "minio"
	ProviderCloudflareR2 Provider = "cloudflare_r2"
	ProviderDigitalOcean Provider = "digitalocean"
	ProviderBackblaze    Provider = "backblaze"
	ProviderWasabi       Provider = "wasabi"
	ProviderCustom       Provider = "custom"
)

// Providers lists every supported tag in display order.
var Providers = []Provider{
	ProviderAWS,
	ProviderMinio,
	ProviderCloudflareR2,
	ProviderDigitalOcean,
	ProviderBackblaze,
	ProviderWasabi,
	ProviderCustom,
}

// ParseProvider maps a tag to the closed set; anything unknown is custom.
func ParseProvider(s string) Provider {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p
		}
	}
	return ProviderCustom
}

func (p *Provider) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = ParseProvider(s)
	return nil
}

// Connection is the persisted connection record. The secret key never lives here.
type Connection struct {
	ID           string   `gorm:"primaryKey" json:"id"`
	Name         string   `json:"name" validate:"required,max=128"`
	Provider     Provider `json:"provider" validate:"oneof=aws minio cloudflare_r2 digitalocean backblaze wasabi custom"`
	Endpoint     string   `json:"endpoint" validate:"required_unless=Provider aws"`
	Region       string   `json:"region"`
	AccessKey    string   `json:"accessKey"`
	UseSSL       bool     `json:"useSsl"`
	UsePathStyle bool     `json:"usePathStyle"`
	CreatedAt    int64    `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt    int64    `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

// ConnectionWithSecret is a record with its secret attached while in use.
type ConnectionWithSecret struct {
	Connection
	SecretKey string `json:"-"`
}

func (c ConnectionWithSecret) Record() Connection { return c.Connection }

// ConnectionInput carries create/update fields. Nil pointers mean "unchanged"
// on update; UsePathStyle nil on create falls back to the provider default.
type ConnectionInput struct {
	Name         *string   `json:"name,omitempty"`
	Provider     *Provider `json:"provider,omitempty"`
	Endpoint     *string   `json:"endpoint,omitempty"`
	Region       *string   `json:"region,omitempty"`
	AccessKey    *string   `json:"accessKey,omitempty"`
	SecretKey    *string   `json:"secretKey,omitempty"`
	UseSSL       *bool     `json:"useSsl,omitempty"`
	UsePathStyle *bool     `json:"usePathStyle,omitempty"`
}

// ExportedConnection is the portable subset of a record: no id, no timestamps, no secret.
type ExportedConnection struct {
	Name         string   `json:"name"`
	Provider     Provider `json:"provider"`
	Endpoint     string   `json:"endpoint"`
	Region       string   `json:"region"`
	AccessKey    string   `json:"accessKey"`
	UseSSL       bool     `json:"useSsl"`
	UsePathStyle bool     `json:"usePathStyle"`
}

const ExportVersion = 1

type ConnectionExport struct {
	Version     int                  `json:"version"`
	Connections []ExportedConnection `json:"connections"`
}
