package tagresolver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/qcbench/qcbench/internal/qcerr"
)

// HuggingFaceLister implements ThirdPartyLister against the Hugging Face
// Hub's public refs API. Ollama-style "hf.co/ns/repo" sources resolve a
// wildcard tag pattern against the repo's branches, since GGUF quantization
// repos conventionally publish one branch per quantization level (e.g.
// "Q4_K_M", "Q8_0") with "main" holding the default.
type HuggingFaceLister struct {
	http *http.Client
}

// NewHuggingFaceLister returns a ThirdPartyLister backed by httpClient (a
// plain *http.Client, since the Hub's refs endpoint needs no auth for
// public repos). A nil httpClient uses http.DefaultClient.
func NewHuggingFaceLister(httpClient *http.Client) *HuggingFaceLister {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HuggingFaceLister{http: httpClient}
}

// ListTags returns the branch names published for source, a "hf.co/ns/repo"
// reference.
func (l *HuggingFaceLister) ListTags(ctx context.Context, source string) ([]string, error) {
	repo := strings.TrimPrefix(source, "hf.co/")
	return l.listTagsFrom(ctx, "https://huggingface.co/api/models/"+repo+"/refs")
}

// listTagsFrom issues the refs lookup against an explicit url, split out of
// ListTags so tests can point it at a fake server.
func (l *HuggingFaceLister) listTagsFrom(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, qcerr.Wrap(qcerr.KindConfiguration, "tagresolver.huggingface", url, 1, err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, qcerr.Wrap(qcerr.KindNetwork, "tagresolver.huggingface", url, 1, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, qcerr.New(qcerr.KindNotFound, "tagresolver.huggingface", url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, qcerr.Wrap(qcerr.KindServerStatus, "tagresolver.huggingface", url, resp.StatusCode, nil)
	}

	var out struct {
		Branches []struct {
			Name string `json:"name"`
		} `json:"branches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, qcerr.Wrap(qcerr.KindDataIntegrity, "tagresolver.huggingface", url, 1, err)
	}

	tags := make([]string, 0, len(out.Branches))
	for _, b := range out.Branches {
		tags = append(tags, b.Name)
	}
	return tags, nil
}

// HuggingFaceManifestFetcher implements store.ManifestFetcher for
// "hf.co/ns/repo" sources, fetching the branch's file tree as the
// manifest bytes the digest backfill hashes (spec.md §4.6). The Hub
// assigns no single per-branch digest the way a primary registry's
// manifest does, so the tree listing (file names plus content hashes)
// stands in as the deterministic byte sequence to hash.
type HuggingFaceManifestFetcher struct {
	http *http.Client
}

// NewHuggingFaceManifestFetcher returns a store.ManifestFetcher backed by
// httpClient. A nil httpClient uses http.DefaultClient.
func NewHuggingFaceManifestFetcher(httpClient *http.Client) *HuggingFaceManifestFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HuggingFaceManifestFetcher{http: httpClient}
}

// FetchManifest returns the raw JSON file-tree listing for source's tag
// (branch).
func (f *HuggingFaceManifestFetcher) FetchManifest(ctx context.Context, source, tag string) ([]byte, error) {
	repo := strings.TrimPrefix(source, "hf.co/")
	return f.fetchManifestFrom(ctx, "https://huggingface.co/api/models/"+repo+"/tree/"+tag)
}

// fetchManifestFrom issues the tree lookup against an explicit url, split
// out of FetchManifest so tests can point it at a fake server.
func (f *HuggingFaceManifestFetcher) fetchManifestFrom(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, qcerr.Wrap(qcerr.KindConfiguration, "tagresolver.huggingface.manifest", url, 1, err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, qcerr.Wrap(qcerr.KindNetwork, "tagresolver.huggingface.manifest", url, 1, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, qcerr.Wrap(qcerr.KindServerStatus, "tagresolver.huggingface.manifest", url, resp.StatusCode, nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, qcerr.Wrap(qcerr.KindDataIntegrity, "tagresolver.huggingface.manifest", url, 1, err)
	}
	return data, nil
}
