package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"teamkb/internal/transport/http/response"
)

const (
	ContextTeamIDKey = "team_id"
	ContextUserIDKey = "user_id"

	teamHeader = "X-Team-ID"
	userHeader = "X-User-ID"
)

// RequireTeam resolves the caller's team from the X-Team-ID header set by the
// gateway in front of this service. Every scoped route refuses to run without
// it. X-User-ID is optional and only consulted by the favorites endpoints.
func RequireTeam() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(teamHeader))
		if raw == "" {
			response.Error(c, 400, response.CodeMissingTeam, "missing X-Team-ID header")
			c.Abort()
			return
		}
		teamID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || teamID == 0 {
			response.Error(c, 400, response.CodeMissingTeam, "invalid X-Team-ID header")
			c.Abort()
			return
		}
		c.Set(ContextTeamIDKey, uint(teamID))

		if rawUser := strings.TrimSpace(c.GetHeader(userHeader)); rawUser != "" {
			if userID, err := strconv.ParseUint(rawUser, 10, 64); err == nil {
				c.Set(ContextUserIDKey, uint(userID))
			}
		}
		c.Next()
	}
}

func TeamID(c *gin.Context) uint {
	if v, ok := c.Get(ContextTeamIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func UserID(c *gin.Context) (uint, bool) {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(uint); ok && id != 0 {
			return id, true
		}
	}
	return 0, false
}
