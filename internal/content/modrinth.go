// Modrinth content provider. Grounded on
// nickheyer-discopanel/internal/indexers/modrinth/{client.go,adapter.go}'s
// facet-query-and-paginate client plus project/version DTOs, generalized
// here from "modpacks only" to the four content types §4.13 names, and
// from a db-backed ModpackIndexer interface to the Provider shape this
// package already declares.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/request"
)

const modrinthBaseURL = "https://api.modrinth.com/v2"

// ModrinthProvider implements Provider against the public Modrinth API.
type ModrinthProvider struct {
	client *request.Client
}

func NewModrinthProvider(client *request.Client) *ModrinthProvider {
	return &ModrinthProvider{client: client}
}

func (p *ModrinthProvider) ID() string { return "modrinth" }

type modrinthSearchResponse struct {
	Hits      []modrinthProject `json:"hits"`
	Offset    int               `json:"offset"`
	Limit     int               `json:"limit"`
	TotalHits int               `json:"total_hits"`
}

type modrinthProject struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	Downloads   int64  `json:"downloads"`
}

// projectTypeFor maps our closed ContentType enum to Modrinth's own
// project_type facet value.
func projectTypeFor(ct domain.ContentType) string {
	switch ct {
	case domain.ContentMod:
		return "mod"
	case domain.ContentResourcePack:
		return "resourcepack"
	case domain.ContentDataPack:
		return "datapack"
	case domain.ContentShaderPack:
		return "shader"
	default:
		return "mod"
	}
}

// Search translates params into a Modrinth facet query, grounded on the
// teacher's SearchModpacks (facets built as a [][]string, json-encoded
// into the query string's "facets" param).
func (p *ModrinthProvider) Search(ctx context.Context, params domain.ContentSearchParams) (domain.SearchResult, error) {
	facets := [][]string{{"project_type:" + projectTypeFor(params.ContentType)}}
	if params.GameVersion != "" {
		facets = append(facets, []string{"versions:" + params.GameVersion})
	}
	if params.ModLoader != "" {
		facets = append(facets, []string{"categories:" + strings.ToLower(string(params.ModLoader))})
	}
	facetsJSON, err := json.Marshal(facets)
	if err != nil {
		return domain.SearchResult{}, domainerr.Wrap(domainerr.KindCorrupted, "facets", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	if params.Query != "" {
		q.Set("query", params.Query)
	}
	q.Set("facets", string(facetsJSON))
	q.Set("index", "downloads")
	q.Set("offset", strconv.Itoa(params.Offset))
	q.Set("limit", strconv.Itoa(limit))

	reqURL := fmt.Sprintf("%s/search?%s", modrinthBaseURL, q.Encode())
	resp, err := request.FetchJSON[modrinthSearchResponse](ctx, p.client, request.Request{Method: "GET", URL: reqURL})
	if err != nil {
		return domain.SearchResult{}, err
	}

	items := make([]domain.ContentItem, len(resp.Hits))
	for i, hit := range resp.Hits {
		items[i] = domain.ContentItem{
			ProviderID:  p.ID(),
			ProjectID:   hit.ProjectID,
			Title:       hit.Title,
			Description: hit.Description,
			IconURL:     hit.IconURL,
			Downloads:   hit.Downloads,
		}
	}
	return domain.SearchResult{Items: items, TotalCount: resp.TotalHits, Offset: resp.Offset, Limit: resp.Limit}, nil
}

type modrinthVersion struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	GameVersions []string        `json:"game_versions"`
	Loaders      []string        `json:"loaders"`
	Files        []modrinthFile  `json:"files"`
}

type modrinthFile struct {
	URL      string          `json:"url"`
	Filename string          `json:"filename"`
	Primary  bool            `json:"primary"`
	Hashes   map[string]string `json:"hashes"`
}

// Resolve implements spec.md §4.13's install: resolve a project version
// either by explicit version id or by (project_id, game_version, loader),
// download the primary file (fallback: first file) into destDir, and
// return a sidecar carrying the modrinth update descriptor.
func (p *ModrinthProvider) Resolve(ctx context.Context, params domain.InstallParams, destDir string) (string, domain.Sidecar, error) {
	version, err := p.resolveVersion(ctx, params)
	if err != nil {
		return "", domain.Sidecar{}, err
	}
	if len(version.Files) == 0 {
		return "", domain.Sidecar{}, domainerr.New(domainerr.KindNoValueFor, "modrinth files for "+version.ID)
	}

	file := version.Files[0]
	for _, f := range version.Files {
		if f.Primary {
			file = f
			break
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", domain.Sidecar{}, domainerr.Wrap(domainerr.KindWriteFailed, destDir, err)
	}
	dest := filepath.Join(destDir, file.Filename)
	out, err := os.Create(dest)
	if err != nil {
		return "", domain.Sidecar{}, domainerr.Wrap(domainerr.KindWriteFailed, dest, err)
	}
	sha1sum, err := p.client.FetchBytesWithProgress(ctx, request.Request{
		Method: "GET", URL: file.URL, Background: true, ExpectedSHA1: file.Hashes["sha1"],
	}, out, nil)
	closeErr := out.Close()
	if err != nil {
		os.Remove(dest)
		return "", domain.Sidecar{}, err
	}
	if closeErr != nil {
		return "", domain.Sidecar{}, domainerr.Wrap(domainerr.KindWriteFailed, dest, closeErr)
	}

	relPath := filepath.ToSlash(filepath.Join(string(params.ContentType), file.Filename))
	sidecar := domain.Sidecar{
		FileName: file.Filename,
		Hash:     sha1sum,
		Update: domain.UpdateDescriptor{
			"modrinth": {"project_id": version.ProjectID, "version": version.ID},
		},
	}
	return relPath, sidecar, nil
}

func (p *ModrinthProvider) resolveVersion(ctx context.Context, params domain.InstallParams) (modrinthVersion, error) {
	if params.VersionID != "" {
		url := fmt.Sprintf("%s/version/%s", modrinthBaseURL, params.VersionID)
		return request.FetchJSON[modrinthVersion](ctx, p.client, request.Request{Method: "GET", URL: url})
	}

	url := fmt.Sprintf("%s/project/%s/version", modrinthBaseURL, params.ProjectID)
	versions, err := request.FetchJSON[[]modrinthVersion](ctx, p.client, request.Request{Method: "GET", URL: url})
	if err != nil {
		return modrinthVersion{}, err
	}
	for _, v := range versions {
		if containsStr(v.GameVersions, params.GameVersion) && (params.ModLoader == "" || containsStr(v.Loaders, strings.ToLower(string(params.ModLoader)))) {
			return v, nil
		}
	}
	if len(versions) > 0 {
		return versions[0], nil
	}
	return modrinthVersion{}, domainerr.New(domainerr.KindNoValueFor, "modrinth version for "+params.ProjectID)
}

func containsStr(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
