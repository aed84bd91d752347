package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tvsync/tvsync/pkg/api"
	"github.com/tvsync/tvsync/pkg/cache"
	"github.com/tvsync/tvsync/pkg/emby"
	"github.com/tvsync/tvsync/pkg/model"
	"github.com/tvsync/tvsync/pkg/session"
	"github.com/tvsync/tvsync/pkg/stats"
	"github.com/tvsync/tvsync/pkg/vod"
)

type vodService interface {
	Search(ctx context.Context, query string) (*api.VodResponse, error)
	DetailByID(ctx context.Context, id string, link vod.PlayLink) (*api.VodResponse, error)
	DetailBySearch(ctx context.Context, query string, link vod.PlayLink) (*api.VodResponse, error)
}

type streamer interface {
	Stream(w http.ResponseWriter, r *http.Request, itemID, filename string) error
}

type configCache interface {
	Get(ctx context.Context) (*cache.Entry, error)
}

type Opts struct {
	// SubscribeToken is the shared secret every aggregator link carries.
	SubscribeToken string
	// CookieSecret signs session cookies.
	CookieSecret string
	// Hostname overrides the base URL of generated play links. When empty,
	// the base is inferred from each request.
	Hostname string
}

type handler struct {
	vod    vodService
	stream streamer
	cache  configCache
	stats  stats.Counter
	opts   Opts
}

func New(vodService vodService, stream streamer, configCache configCache, counter stats.Counter, opts Opts) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(opts.CookieSecret))
	r.Use(sessions.Sessions("tvsync", store))

	h := handler{
		vod:    vodService,
		stream: stream,
		cache:  configCache,
		stats:  counter,
		opts:   opts,
	}

	r.GET("/api/ping", h.ping)

	r.GET("/user/login", h.login)
	r.GET("/user/logout", h.logout)

	r.GET("/vod/cms-proxy/:token", h.catalog)
	r.GET("/vod/play/:token/:filename", h.play)

	return r
}

func (h handler) ping(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// catalog serves the aggregator list/detail contract. Failures here are
// soft: an invalid token or an upstream error still answers HTTP 200 with
// the status in the body, which is the shape TVBox clients expect.
func (h handler) catalog(c *gin.Context) {
	if c.Param("token") != h.opts.SubscribeToken {
		c.JSON(http.StatusOK, api.Fail(api.StatusUnauthorized, "invalid token"))
		return
	}

	ac := c.Query("ac")
	switch ac {
	case "videolist", "list", "detail":
	default:
		c.String(http.StatusBadRequest, "unsupported ac %q", ac)
		return
	}

	var (
		ctx  = c.Request.Context()
		link = h.playLink(c)
		wd   = c.Query("wd")
		ids  = c.Query("ids")

		resp *api.VodResponse
		err  error
	)

	switch {
	case wd != "" && ac == "detail":
		resp, err = h.vod.DetailBySearch(ctx, wd, link)
	case wd != "":
		h.count(stats.MetricQueries, wd)
		resp, err = h.vod.Search(ctx, wd)
	case ids != "":
		// Clients may send a comma separated list, only the first id counts.
		resp, err = h.vod.DetailByID(ctx, strings.SplitN(ids, ",", 2)[0], link)
	case ac == "detail":
		resp = api.Fail(api.StatusBadRequest, "missing ids")
	default:
		resp, err = h.vod.Search(ctx, "")
	}

	if err != nil {
		log.WithError(err).Error("catalog request failed")
		c.JSON(http.StatusOK, api.Fail(api.StatusError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// play streams an item. Unlike the catalog endpoint this one hard-fails:
// players follow HTTP status codes, not JSON bodies.
func (h handler) play(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	itemID := c.Query("itemId")
	if itemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing itemId"})
		return
	}

	h.count(stats.MetricPlays, itemID)

	if err := h.stream.Stream(c.Writer, c.Request, itemID, c.Param("filename")); err != nil {
		log.WithError(err).WithField("item_id", itemID).Error("stream request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// authorized accepts either the shared subscribe token or a logged-in
// session cookie.
func (h handler) authorized(c *gin.Context) bool {
	if c.Param("token") == h.opts.SubscribeToken {
		return true
	}

	identity, err := session.GetIdentity(c)
	return err == nil && identity.Username != ""
}

func (h handler) login(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(badRequest(errors.New("missing username")))
		return
	}

	entry, err := h.cache.Get(c.Request.Context())
	if err != nil {
		c.JSON(internalError(err))
		return
	}

	res, err := emby.New(entry.ServerURL, "").AuthenticateByName(c.Request.Context(), username, c.Query("password"))
	if err == model.ErrUnauthorized {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err != nil {
		c.JSON(internalError(err))
		return
	}

	if err := session.SetIdentity(c, &api.Identity{Username: username, UserID: res.UserID}); err != nil {
		c.JSON(internalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": username})
}

func (h handler) logout(c *gin.Context) {
	session.Clear(c)
	c.Status(http.StatusNoContent)
}

// playLink captures the request's base URL and the shared token so the
// translator can mint play links without knowing about HTTP.
func (h handler) playLink(c *gin.Context) vod.PlayLink {
	base := h.baseURL(c)
	token := url.PathEscape(h.opts.SubscribeToken)

	return func(itemID, filename string) string {
		return fmt.Sprintf("%s/vod/play/%s/%s?itemId=%s",
			base, token, url.PathEscape(filename), url.QueryEscape(itemID))
	}
}

func (h handler) baseURL(c *gin.Context) string {
	if h.opts.Hostname != "" {
		return strings.TrimRight(h.opts.Hostname, "/")
	}

	host := c.Request.Host
	scheme := "https"
	if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		scheme = "http"
	}

	return scheme + "://" + host
}

func (h handler) count(metric, id string) {
	if _, err := h.stats.Inc(metric, id); err != nil {
		log.WithError(err).Debugf("failed to count %s", metric)
	}
}

func badRequest(err error) (int, interface{}) {
	return http.StatusBadRequest, gin.H{"error": err.Error()}
}

func internalError(err error) (int, interface{}) {
	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}
