package commands

import (
	"maps"

	"github.com/greeddj/binrepo-store/internal/binrepo/bundle"
	"github.com/greeddj/binrepo-store/internal/binrepo/catalog"
	"github.com/greeddj/binrepo-store/internal/binrepo/cookbook"
)

type cookbookView struct {
	Name        string       `json:"name" yaml:"name"`
	Version     string       `json:"version" yaml:"version"`
	SourceKind  string       `json:"source_kind" yaml:"source_kind"`
	LocationURI string       `json:"location_uri" yaml:"location_uri"`
	Priority    int          `json:"priority" yaml:"priority"`
	Info        catalog.Info `json:"info" yaml:"info"`
}

func newCookbookView(e catalog.Entry) cookbookView {
	v := cookbookView{
		Name:        e.Name,
		SourceKind:  e.SourceKind,
		LocationURI: e.LocationURI,
		Priority:    e.Priority,
		Info:        e.Info,
	}
	if e.Version != nil {
		v.Version = e.Version.Original()
	}
	return v
}

type metadataView struct {
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Extra        map[string]any    `json:"extra,omitempty" yaml:"extra,omitempty"`
	LocationURI  string            `json:"location_uri" yaml:"location_uri"`
}

func newMetadataView(e catalog.Entry, md *cookbook.Metadata) metadataView {
	extra := make(map[string]any, len(md.Extra))
	maps.Copy(extra, md.Extra)
	delete(extra, "dependencies")
	return metadataView{
		Name:         md.Name,
		Version:      md.VersionString(),
		Dependencies: md.Dependencies(),
		Extra:        extra,
		LocationURI:  e.LocationURI,
	}
}

type packageView struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Archive string `json:"archive" yaml:"archive"`
	SHA256  string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Created bool   `json:"created" yaml:"created"`
}

type resultView struct {
	Bundle   string        `json:"bundle" yaml:"bundle"`
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	Version  string        `json:"version,omitempty" yaml:"version,omitempty"`
	Outcome  string        `json:"outcome" yaml:"outcome"`
	Target   string        `json:"target,omitempty" yaml:"target,omitempty"`
	Packages []packageView `json:"packages,omitempty" yaml:"packages,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type reportView struct {
	Imported int          `json:"imported" yaml:"imported"`
	Failed   int          `json:"failed" yaml:"failed"`
	Results  []resultView `json:"results" yaml:"results"`
}

func newReportView(r bundle.Report) reportView {
	v := reportView{
		Imported: r.Imported,
		Failed:   len(r.Failures),
		Results:  make([]resultView, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		rv := resultView{
			Bundle:  res.Bundle,
			Name:    res.Name,
			Version: res.Version,
			Outcome: res.Outcome.String(),
			Target:  res.Target,
		}
		if res.Err != nil {
			rv.Error = res.Err.Error()
		}
		for _, pkg := range res.Packages {
			rv.Packages = append(rv.Packages, packageView{
				Name:    pkg.Name,
				Version: pkg.Version,
				Archive: pkg.Archive,
				SHA256:  pkg.SHA256,
				Created: pkg.Created,
			})
		}
		v.Results = append(v.Results, rv)
	}
	return v
}
