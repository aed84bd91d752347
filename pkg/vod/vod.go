// Package vod translates upstream catalog results into the aggregator
// list/detail contract consumed by TVBox-style clients.
package vod

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/tvsync/tvsync/pkg/api"
	"github.com/tvsync/tvsync/pkg/cache"
	"github.com/tvsync/tvsync/pkg/emby"
	"github.com/tvsync/tvsync/pkg/model"
)

const (
	searchLimit = 100

	// Source tag shown by clients in the play source selector.
	playSource = "tvsync"

	movieLabel     = "正片"
	typeNameMovie  = "电影"
	typeNameSeries = "电视剧"
)

// PlayLink builds the proxied playback address for an item. The base address
// and access token depend on the incoming request, so handlers supply this
// per call. Play links always point back at this service, never at the
// upstream server.
type PlayLink func(itemID, filename string) string

type configCache interface {
	Get(ctx context.Context) (*cache.Entry, error)
}

type Service struct {
	cache configCache
}

func New(configCache configCache) *Service {
	return &Service{cache: configCache}
}

// Search returns up to 100 movies and series matching the query. An empty
// query lists the unfiltered top of the library.
func (s *Service) Search(ctx context.Context, query string) (*api.VodResponse, error) {
	client, err := s.client(ctx)
	if err != nil {
		return configUnavailable(err)
	}

	items, err := client.SearchItems(ctx, query, searchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search media server")
	}

	records := make([]api.VodRecord, 0, len(items))
	for _, item := range items {
		records = append(records, makeRecord(client, item))
	}

	return api.OK(records), nil
}

// DetailByID returns a single record with its play list. Movies get one
// "正片" entry, series get one entry per episode in (season, episode) order,
// joined with "#".
func (s *Service) DetailByID(ctx context.Context, id string, link PlayLink) (*api.VodResponse, error) {
	client, err := s.client(ctx)
	if err != nil {
		return configUnavailable(err)
	}

	item, err := client.GetItem(ctx, id)
	if err == model.ErrNotFound {
		return api.Empty("not found"), nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch item %s", id)
	}

	record := makeRecord(client, *item)
	record.VodPlayFrom = playSource

	if item.Type == model.ItemSeries {
		playURL, err := s.seriesPlayList(ctx, client, item, link)
		if err != nil {
			return nil, err
		}

		record.VodPlayURL = playURL
	} else {
		record.VodPlayURL = movieLabel + "$" + link(item.ID, filename(item.Name))
	}

	return api.OK([]api.VodRecord{record}), nil
}

// DetailBySearch resolves the query to the first matching item and delegates
// to DetailByID, or returns the not-found sentinel.
func (s *Service) DetailBySearch(ctx context.Context, query string, link PlayLink) (*api.VodResponse, error) {
	client, err := s.client(ctx)
	if err != nil {
		return configUnavailable(err)
	}

	items, err := client.SearchItems(ctx, query, 1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search media server")
	}

	if len(items) == 0 {
		return api.Empty("not found"), nil
	}

	return s.DetailByID(ctx, items[0].ID, link)
}

func (s *Service) seriesPlayList(ctx context.Context, client *emby.Client, item *model.Item, link PlayLink) (string, error) {
	episodes, err := client.GetEpisodes(ctx, item.ID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch episodes of %s", item.ID)
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		if episodes[i].SeasonNumber != episodes[j].SeasonNumber {
			return episodes[i].SeasonNumber < episodes[j].SeasonNumber
		}
		return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber
	})

	segments := make([]string, 0, len(episodes))
	for i, episode := range episodes {
		label := fmt.Sprintf("第%d集", i+1)
		segments = append(segments, label+"$"+link(episode.ID, filename(item.Name)))
	}

	return strings.Join(segments, "#"), nil
}

func (s *Service) client(ctx context.Context) (*emby.Client, error) {
	entry, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	return emby.New(entry.ServerURL, entry.APIKey), nil
}

// Config-layer failures are "no data but no error" to the aggregator client.
func configUnavailable(err error) (*api.VodResponse, error) {
	cause := errors.Cause(err)
	if cause == model.ErrConfigUnavailable || cause == model.ErrUnauthorized {
		return api.Empty(err.Error()), nil
	}

	return nil, err
}

func makeRecord(client *emby.Client, item model.Item) api.VodRecord {
	typeName := typeNameMovie
	if item.Type == model.ItemSeries {
		typeName = typeNameSeries
	}

	year := ""
	if item.ProductionYear > 0 {
		year = strconv.Itoa(item.ProductionYear)
	}

	return api.VodRecord{
		VodID:      item.ID,
		VodName:    item.Name,
		VodPic:     client.ImageURL(item.ID),
		VodRemarks: typeName,
		VodYear:    year,
		VodContent: item.Overview,
		TypeName:   typeName,
	}
}

// filename keeps letters and digits from the item name so the cosmetic path
// segment of play links stays free of '#' and '$', which the aggregator
// treats as play-list separators.
func filename(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r > 127: // keep CJK titles readable
			return r
		default:
			return '-'
		}
	}, name)

	clean = strings.Trim(clean, "-")
	if clean == "" {
		clean = "video"
	}

	return clean + ".mp4"
}
