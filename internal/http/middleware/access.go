package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// AccessOptions restricts faucet use to one guild, one channel and,
// optionally, holders of one role. Empty fields disable that check.
type AccessOptions struct {
	GuildID   string
	ChannelID string
	RoleID    string
}

// AccessGate rejects requests that do not come from the configured guild,
// channel or role with 403 and the front end's user-facing message. It
// reads the values stored by Identity, so install it after Identity.
func AccessGate(opt AccessOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch {
		case opt.GuildID != "" && c.GetString(CtxGuildID) != opt.GuildID:
			deny(c, "This command is only available on the official server.")
			return
		case opt.ChannelID != "" && c.GetString(CtxChannelID) != opt.ChannelID:
			deny(c, "Please use <#"+opt.ChannelID+"> for this command.")
			return
		case opt.RoleID != "" && !slices.Contains(c.GetStringSlice(CtxRoles), opt.RoleID):
			deny(c, "You need the <@&"+opt.RoleID+"> role to use this command.")
			return
		}
		c.Next()
	}
}

func deny(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "forbidden",
		"message":    msg,
	})
}
