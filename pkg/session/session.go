package session

import (
	"encoding/json"
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/tvsync/tvsync/pkg/api"
)

const identitySessionKey = "identity"

var errBrokenSession = errors.New("broken session, try to login again")

func Clear(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	_ = s.Save()
}

// GetIdentity returns the identity stored in the cookie session. A session
// without an identity yields a zero Identity, not an error.
func GetIdentity(c *gin.Context) (*api.Identity, error) {
	s := sessions.Default(c)
	i := &api.Identity{}

	buf, ok := s.Get(identitySessionKey).(string)
	if ok {
		if err := json.Unmarshal([]byte(buf), i); err != nil {
			s.Clear()
			_ = s.Save()

			return nil, errBrokenSession
		}
	}

	return i, nil
}

func SetIdentity(c *gin.Context, identity *api.Identity) error {
	buf, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	s := sessions.Default(c)
	s.Clear()
	s.Set(identitySessionKey, string(buf))
	return s.Save()
}
