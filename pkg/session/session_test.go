package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvsync/tvsync/pkg/api"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(sessions.Sessions("tvsync", cookie.NewStore([]byte("secret"))))

	r.GET("/set", func(c *gin.Context) {
		if err := SetIdentity(c, &api.Identity{Username: "admin", UserID: "u1"}); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	r.GET("/get", func(c *gin.Context) {
		identity, err := GetIdentity(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, identity)
	})

	r.GET("/clear", func(c *gin.Context) {
		Clear(c)
		c.Status(http.StatusOK)
	})

	return r
}

func TestIdentityRoundTrip(t *testing.T) {
	r := testRouter()

	set := httptest.NewRecorder()
	r.ServeHTTP(set, httptest.NewRequest(http.MethodGet, "/set", nil))
	require.Equal(t, http.StatusOK, set.Code)

	cookies := set.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	get := httptest.NewRecorder()
	r.ServeHTTP(get, req)

	require.Equal(t, http.StatusOK, get.Code)
	assert.JSONEq(t, `{"username":"admin","user_id":"u1"}`, get.Body.String())
}

func TestIdentityAbsent(t *testing.T) {
	r := testRouter()

	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/get", nil))

	require.Equal(t, http.StatusOK, get.Code)
	assert.JSONEq(t, `{"username":"","user_id":""}`, get.Body.String())
}
