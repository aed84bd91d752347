// Package emby is a minimal client for the parts of the Emby-compatible HTTP
// API this service consumes: item search, item lookup, episode listing and
// credential authentication. Stream and image addresses are built here too,
// so credential embedding stays in one place.
package emby

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tvsync/tvsync/pkg/model"
)

const (
	requestTimeout = 30 * time.Second

	authHeader = `MediaBrowser Client="tvsync", Device="tvsync", DeviceId="tvsync", Version="1.0"`
)

type Client struct {
	serverURL string
	apiKey    string
	http      *http.Client
}

func New(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		http:      &http.Client{Timeout: requestTimeout},
	}
}

type itemPayload struct {
	ID                string `json:"Id"`
	Name              string `json:"Name"`
	Type              string `json:"Type"`
	Overview          string `json:"Overview"`
	ProductionYear    int    `json:"ProductionYear"`
	IndexNumber       *int   `json:"IndexNumber"`
	ParentIndexNumber *int   `json:"ParentIndexNumber"`
}

func (p itemPayload) toItem() model.Item {
	return model.Item{
		ID:             p.ID,
		Name:           p.Name,
		Type:           model.ItemType(p.Type),
		Overview:       p.Overview,
		ProductionYear: p.ProductionYear,
	}
}

type itemsPayload struct {
	Items            []itemPayload `json:"Items"`
	TotalRecordCount int           `json:"TotalRecordCount"`
}

// SearchItems queries movies and series recursively, capped at limit.
// An empty term returns the unfiltered top of the library.
func (c *Client) SearchItems(ctx context.Context, term string, limit int) ([]model.Item, error) {
	qs := url.Values{}
	qs.Set("IncludeItemTypes", "Movie,Series")
	qs.Set("Recursive", "true")
	qs.Set("Fields", "Overview,ProductionYear")
	qs.Set("Limit", strconv.Itoa(limit))

	if term != "" {
		qs.Set("SearchTerm", term)
	}

	var out itemsPayload
	if err := c.get(ctx, "/emby/Items", qs, &out); err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(out.Items))
	for _, payload := range out.Items {
		items = append(items, payload.toItem())
	}

	return items, nil
}

// GetItem fetches a single item by id, or model.ErrNotFound.
func (c *Client) GetItem(ctx context.Context, id string) (*model.Item, error) {
	qs := url.Values{}
	qs.Set("Ids", id)
	qs.Set("Fields", "Overview,ProductionYear")

	var out itemsPayload
	if err := c.get(ctx, "/emby/Items", qs, &out); err != nil {
		return nil, err
	}

	if len(out.Items) == 0 {
		return nil, model.ErrNotFound
	}

	item := out.Items[0].toItem()
	return &item, nil
}

// GetEpisodes lists all episodes of a series, in upstream order. Missing
// season/episode numbers come back as zero.
func (c *Client) GetEpisodes(ctx context.Context, seriesID string) ([]model.Episode, error) {
	var out itemsPayload
	path := fmt.Sprintf("/emby/Shows/%s/Episodes", url.PathEscape(seriesID))
	if err := c.get(ctx, path, url.Values{}, &out); err != nil {
		return nil, err
	}

	episodes := make([]model.Episode, 0, len(out.Items))
	for _, payload := range out.Items {
		episodes = append(episodes, model.Episode{
			ID:            payload.ID,
			SeasonNumber:  intValue(payload.ParentIndexNumber),
			EpisodeNumber: intValue(payload.IndexNumber),
		})
	}

	return episodes, nil
}

type AuthResult struct {
	Token  string
	UserID string
}

type authPayload struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID string `json:"Id"`
	} `json:"User"`
}

// AuthenticateByName exchanges username/password for an access token.
func (c *Client) AuthenticateByName(ctx context.Context, username, password string) (*AuthResult, error) {
	body, err := json.Marshal(map[string]string{"Username": username, "Pw": password})
	if err != nil {
		return nil, err
	}

	addr := c.serverURL + "/emby/Users/AuthenticateByName"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Authorization", authHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, model.ErrUnauthorized
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected response (%d) from media server login", resp.StatusCode)
	}

	var out authPayload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return &AuthResult{Token: out.AccessToken, UserID: out.User.ID}, nil
}

// StreamURL is the direct stream address with the credential embedded as a
// query parameter.
func (c *Client) StreamURL(itemID string) string {
	return fmt.Sprintf("%s/emby/Videos/%s/stream?api_key=%s&Static=true",
		c.serverURL, url.PathEscape(itemID), url.QueryEscape(c.apiKey))
}

// ImageURL is the primary image address for an item.
func (c *Client) ImageURL(itemID string) string {
	return fmt.Sprintf("%s/emby/Items/%s/Images/Primary?maxHeight=400",
		c.serverURL, url.PathEscape(itemID))
}

func (c *Client) get(ctx context.Context, path string, qs url.Values, out interface{}) error {
	qs.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+path+"?"+qs.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrapf(err, "failed to read error body (status: %d)", resp.StatusCode)
		}

		return errors.Errorf("unexpected response (%d) from media server: %q", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
