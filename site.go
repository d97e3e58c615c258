package site

import "encoding/json"

// Digest algorithms and types reported by the host.
const (
	AlgoSHA256 = "SHA256"

	DigestUncompressed = "Uncompressed"
	DigestCompressed   = "Compressed"
)

// Well-known asset types. Any non-empty string is accepted by the host.
const (
	AssetHTML        = "text/html"
	AssetCSS         = "text/css"
	AssetScript      = "text/javascript"
	AssetProjectData = "application/json"
)

// Digest identifies file content.
type Digest struct {
	Algo       string `json:"algo" yaml:"algo"`
	DigestType string `json:"digest_type" yaml:"digest_type"`
	Value      string `json:"value" yaml:"value"`
}

func (d Digest) String() string { return d.Algo + ":" + d.Value }

// File is a single asset of a site, identified by its digest.
type File struct {
	Digest    Digest `json:"digest" yaml:"digest"`
	AssetType string `json:"asset_type" yaml:"asset_type"`
}

// Site is a named collection of files with alternate names.
type Site struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases" yaml:"aliases"`
	Files   []File   `json:"files" yaml:"files"`
}

// NewSite returns an empty site record.
func NewSite(name string) *Site {
	return &Site{Name: name, Aliases: []string{}, Files: []File{}}
}

// File returns the file registered for the given asset type.
func (s *Site) File(assetType string) (File, bool) {
	for _, f := range s.Files {
		if f.AssetType == assetType {
			return f, true
		}
	}
	return File{}, false
}

// HasAlias reports whether alias is one of the site's aliases.
func (s *Site) HasAlias(alias string) bool {
	for _, a := range s.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// MarshalJSON keeps empty aliases and files encoded as arrays.
func (s Site) MarshalJSON() ([]byte, error) {
	type plain Site
	p := plain(s)
	if p.Aliases == nil {
		p.Aliases = []string{}
	}
	if p.Files == nil {
		p.Files = []File{}
	}
	return json.Marshal(p)
}
